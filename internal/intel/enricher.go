package intel

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"ransomwatch/internal/cache"
	"ransomwatch/internal/metrics"
	"ransomwatch/internal/scoring"
)

// maxIPsPerItem bounds IP lookups per item so one IOC-heavy article cannot
// drain the AbuseIPDB quota.
const maxIPsPerItem = 3

// cacheTTL keeps verification results around long enough for any single run;
// the Redis backend also reuses them across nearby runs.
const cacheTTL = time.Hour

// ErrNotVerified is returned when no reputation check for an item succeeded.
var ErrNotVerified = errors.New("no reputation check succeeded")

var ipv4Pattern = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)

// Result is the structured verification outcome attached to a record when
// enrichment ran. ThreatScore is a penalty: higher means less trustworthy.
type Result struct {
	URLReport   *URLReport `json:"url_report,omitempty"`
	IPReports   []IPReport `json:"ip_reports,omitempty"`
	ThreatScore int        `json:"threat_score"`
	Verdict     string     `json:"verdict"`
}

// Enricher coordinates URL and IP reputation lookups for uncertain items.
type Enricher struct {
	vt     *VirusTotalClient
	abuse  *AbuseIPDBClient
	cache  cache.Cache
	logger *zap.Logger
}

// NewEnricher wires the reputation clients to a shared verification cache.
func NewEnricher(vt *VirusTotalClient, abuse *AbuseIPDBClient, c cache.Cache, logger *zap.Logger) *Enricher {
	return &Enricher{vt: vt, abuse: abuse, cache: c, logger: logger}
}

// Enrich verifies an item's URL and any public IPv4 literals found in its
// text against the reputation services, returning the combined penalty.
// Individual lookup failures degrade to skipped checks; ErrNotVerified is
// returned only when nothing could be verified at all, so the caller keeps
// the scorer-assigned tier.
func (e *Enricher) Enrich(ctx context.Context, rawURL, title, description string) (*Result, error) {
	result := &Result{Verdict: "not analyzed"}
	verified := false

	report, err := e.checkURL(ctx, rawURL)
	if err != nil {
		e.logger.Warn("URL reputation check failed",
			zap.String("url", rawURL), zap.Error(err))
	} else {
		verified = true
		result.URLReport = report
		switch {
		case report.Malicious > 0:
			penalty := report.Malicious * 10
			if penalty > 50 {
				penalty = 50
			}
			result.ThreatScore += penalty
			result.Verdict = fmt.Sprintf("malicious URL (%d detections)", report.Malicious)
		case report.Suspicious > 2:
			result.ThreatScore += 20
			result.Verdict = "suspicious URL"
		default:
			result.Verdict = "URL appears clean"
		}
	}

	for _, ip := range extractIPs(title + " " + description) {
		ipReport, err := e.checkIP(ctx, ip)
		if err != nil {
			e.logger.Warn("IP reputation check failed",
				zap.String("ip", ip), zap.Error(err))
			continue
		}
		verified = true
		result.IPReports = append(result.IPReports, *ipReport)
		switch {
		case ipReport.AbuseScore > 75:
			result.ThreatScore += 30
		case ipReport.AbuseScore > 50:
			result.ThreatScore += 15
		}
	}

	if !verified {
		return nil, ErrNotVerified
	}
	return result, nil
}

func (e *Enricher) checkURL(ctx context.Context, rawURL string) (*URLReport, error) {
	key := "vt:" + rawURL

	var cached URLReport
	if hit, err := e.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	report, err := e.vt.CheckURL(ctx, rawURL)
	if err != nil {
		metrics.EnrichmentCalls.WithLabelValues("virustotal", "error").Inc()
		return nil, err
	}
	metrics.EnrichmentCalls.WithLabelValues("virustotal", "ok").Inc()

	if err := e.cache.Set(ctx, key, report, cacheTTL); err != nil {
		e.logger.Warn("caching URL report failed", zap.Error(err))
	}
	return report, nil
}

func (e *Enricher) checkIP(ctx context.Context, ip string) (*IPReport, error) {
	key := "abuseipdb:" + ip

	var cached IPReport
	if hit, err := e.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	report, err := e.abuse.CheckIP(ctx, ip)
	if err != nil {
		metrics.EnrichmentCalls.WithLabelValues("abuseipdb", "error").Inc()
		return nil, err
	}
	metrics.EnrichmentCalls.WithLabelValues("abuseipdb", "ok").Inc()

	if err := e.cache.Set(ctx, key, report, cacheTTL); err != nil {
		e.logger.Warn("caching IP report failed", zap.Error(err))
	}
	return report, nil
}

// extractIPs returns up to maxIPsPerItem distinct public IPv4 literals from
// text, in order of first appearance. Private and loopback ranges are
// excluded by first octet: 10.x, 127.x, 192.168.x, and all of 172.x.
// The 172 exclusion covers the whole /8 rather than just 172.16.0.0/12;
// penalty tuning assumes this filter, so keep it as-is.
func extractIPs(text string) []string {
	seen := make(map[string]struct{})
	var ips []string
	for _, ip := range ipv4Pattern.FindAllString(text, -1) {
		if _, dup := seen[ip]; dup {
			continue
		}
		seen[ip] = struct{}{}
		first := ip[:strings.Index(ip, ".")]
		if first == "10" || first == "127" || first == "172" {
			continue
		}
		if strings.HasPrefix(ip, "192.168.") {
			continue
		}
		ips = append(ips, ip)
		if len(ips) == maxIPsPerItem {
			break
		}
	}
	return ips
}

// Adjust lowers a confidence tier according to the verification penalty.
// It is monotone: the returned tier is never higher-trust than the input.
func Adjust(tier scoring.Tier, threatScore int) scoring.Tier {
	switch {
	case threatScore > 40:
		return scoring.TierLow
	case threatScore > 20 && tier == scoring.TierHigh:
		return scoring.TierMedium
	case threatScore > 10 && tier == scoring.TierMedium:
		return scoring.TierLow
	}
	return tier
}
