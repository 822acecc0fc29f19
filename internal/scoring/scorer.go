// Package scoring evaluates how trustworthy a candidate news item is.
// Five independent factors are scored and summed into a 0-100 total, which
// maps to a coarse confidence tier. The score is a heuristic signal, not
// ground truth.
package scoring

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Tier is the coarse trust classification assigned to a record.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Factor is one scored signal with its justification, retained for audit.
type Factor struct {
	Name   string `json:"factor"`
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// Evaluation is the full scoring result. Only Tier and Points drive
// downstream behavior; Factors exist so a reviewer can see why.
type Evaluation struct {
	Tier    Tier     `json:"tier"`
	Points  int      `json:"points"`
	Factors []Factor `json:"factors"`
}

// highTrustDomains are recognized outlets and official institutions: +40.
var highTrustDomains = []string{
	// international top-tier media
	"reuters.com", "bbc.co.uk", "bbc.com", "nytimes.com", "wsj.com",
	"theguardian.com", "washingtonpost.com", "apnews.com", "bloomberg.com",
	"ft.com", "economist.com", "cnn.com", "nbcnews.com", "cbsnews.com",
	// tech and security press
	"wired.com", "arstechnica.com", "techcrunch.com", "zdnet.com",
	"theverge.com", "bleepingcomputer.com", "securityweek.com",
	"krebsonsecurity.com", "darkreading.com", "therecord.media",
	"cyberscoop.com", "threatpost.com",
	// official institutions
	"cisa.gov", "fbi.gov", "ic3.gov", "cert.org", "nist.gov",
	"europol.europa.eu", "ncsc.gov.uk",
	// recognized Spanish media
	"elpais.com", "elmundo.es", "abc.es", "lavanguardia.com",
}

// communityDomains are technical/community platforms: +20.
var communityDomains = []string{
	"medium.com", "substack.com", "hackernoon.com", "dev.to",
	"linkedin.com", "github.com", "reddit.com", "twitter.com",
	"infosecurity-magazine.com", "securityintelligence.com",
}

// suspiciousDomainMarkers are throwaway TLDs and link shorteners: -20.
var suspiciousDomainMarkers = []string{".xyz", ".tk", ".ml", "bit.ly", "tinyurl"}

// technicalIndicators signal concrete incident analysis (lowercase).
var technicalIndicators = []string{
	"cve-", "mitre att&ck", "ioc", "indicator of compromise",
	"malware sample", "hash", "ip address", "command and control",
	"c2 server", "ttps", "forensic analysis", "incident response",
	"vulnerability", "exploit", "payload", "encryption algorithm",
}

// officialIndicators signal institutional sourcing (lowercase).
var officialIndicators = []string{
	"press release", "official statement", "government agency",
	"law enforcement", "fbi", "cisa", "europol", "advisory",
	"security bulletin", "threat intelligence", "cert",
}

// lowQualityIndicators signal clickbait and rumor language (lowercase).
var lowQualityIndicators = []string{
	"clickbait", "you won't believe", "shocking", "unconfirmed",
	"rumor", "alleged", "speculation", "anonymous source",
	"breaking news", "exclusive leak",
}

var (
	properNounPair = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)
	plausibleYear  = regexp.MustCompile(`\b(202[0-9]|20[1-2][0-9])\b`)
	quantityUnit   = regexp.MustCompile(`(?i)\b\d+[.,]?\d*\s?(million|thousand|GB|TB|users|records|files)\b`)
)

// Score evaluates url, title, and description and returns the confidence
// evaluation. It is a pure function of its inputs.
func Score(rawURL, title, description string) Evaluation {
	factors := []Factor{
		evaluateDomain(rawURL),
		evaluateTechnicalContent(title, description),
		evaluateOfficialSource(title, description),
		evaluateContentQuality(title, description),
		evaluateSpecificity(title, description),
	}

	total := 0
	for _, f := range factors {
		total += f.Points
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return Evaluation{
		Tier:    tierFor(total),
		Points:  total,
		Factors: factors,
	}
}

func tierFor(points int) Tier {
	switch {
	case points >= 60:
		return TierHigh
	case points >= 30:
		return TierMedium
	default:
		return TierLow
	}
}

func evaluateDomain(rawURL string) Factor {
	const name = "domain"

	if rawURL == "" {
		return Factor{Name: name, Points: 0, Reason: "no URL"}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return Factor{Name: name, Points: 0, Reason: "unparseable URL"}
	}
	domain := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")

	for _, d := range highTrustDomains {
		if strings.Contains(domain, d) {
			return Factor{Name: name, Points: 40, Reason: "recognized source: " + domain}
		}
	}
	for _, d := range communityDomains {
		if strings.Contains(domain, d) {
			return Factor{Name: name, Points: 20, Reason: "technical platform: " + domain}
		}
	}
	for _, marker := range suspiciousDomainMarkers {
		if strings.Contains(domain, marker) {
			return Factor{Name: name, Points: -20, Reason: "suspicious domain: " + domain}
		}
	}
	return Factor{Name: name, Points: 0, Reason: "unknown source: " + domain}
}

func evaluateTechnicalContent(title, description string) Factor {
	const name = "technical_content"
	n := countIndicators(title, description, technicalIndicators)

	switch {
	case n >= 3:
		return Factor{Name: name, Points: 30, Reason: fmt.Sprintf("detailed technical content (%d indicators)", n)}
	case n >= 1:
		return Factor{Name: name, Points: 15, Reason: fmt.Sprintf("contains technical indicators (%d)", n)}
	default:
		return Factor{Name: name, Points: 0, Reason: "no technical indicators"}
	}
}

func evaluateOfficialSource(title, description string) Factor {
	const name = "official_source"
	n := countIndicators(title, description, officialIndicators)

	switch {
	case n >= 2:
		return Factor{Name: name, Points: 25, Reason: "confirmed official sourcing"}
	case n >= 1:
		return Factor{Name: name, Points: 10, Reason: "possible official sourcing"}
	default:
		return Factor{Name: name, Points: 0, Reason: "no official sourcing"}
	}
}

func evaluateContentQuality(title, description string) Factor {
	const name = "content_quality"
	n := countIndicators(title, description, lowQualityIndicators)

	switch {
	case n >= 2:
		return Factor{Name: name, Points: -30, Reason: "multiple low-quality markers"}
	case n >= 1:
		return Factor{Name: name, Points: -15, Reason: "possible clickbait or rumor"}
	default:
		return Factor{Name: name, Points: 10, Reason: "no low-quality markers"}
	}
}

// evaluateSpecificity rewards concrete details: named organizations, dates,
// and quantified impact. Contributions are additive, not exclusive.
func evaluateSpecificity(title, description string) Factor {
	const name = "specificity"
	text := title + " " + description

	points := 0
	var reasons []string
	if properNounPair.MatchString(text) {
		points += 10
		reasons = append(reasons, "names a specific organization")
	}
	if plausibleYear.MatchString(text) {
		points += 5
		reasons = append(reasons, "includes a date")
	}
	if quantityUnit.MatchString(text) {
		points += 10
		reasons = append(reasons, "includes concrete figures")
	}

	if len(reasons) == 0 {
		return Factor{Name: name, Points: 0, Reason: "generic information"}
	}
	return Factor{Name: name, Points: points, Reason: strings.Join(reasons, ", ")}
}

func countIndicators(title, description string, vocabulary []string) int {
	text := strings.ToLower(title + " " + description)
	n := 0
	for _, ind := range vocabulary {
		if strings.Contains(text, ind) {
			n++
		}
	}
	return n
}
