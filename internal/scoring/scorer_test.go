package scoring

import "testing"

func TestScoreDeterministic(t *testing.T) {
	url := "https://bleepingcomputer.com/news/security/incident"
	title := "LockBit hits Acme Corp"
	desc := "forensic analysis of the cve-2024-1234 exploit traced the c2 server"

	first := Score(url, title, desc)
	for i := 0; i < 5; i++ {
		if got := Score(url, title, desc); got.Points != first.Points || got.Tier != first.Tier {
			t.Fatalf("Score not deterministic: run %d got %+v, want %+v", i, got, first)
		}
	}
}

func TestScoreHighTrust(t *testing.T) {
	eval := Score(
		"https://www.bleepingcomputer.com/news/security/acme-breach/",
		"LockBit hits Acme Corp",
		"forensic analysis of the cve-2024-1234 exploit traced the c2 server; 3 million records stolen",
	)

	// domain +40, four technical indicators +30, no low-quality markers +10,
	// specificity +25 (organization, year, figures): 105 clamps to 100.
	if eval.Points != 100 {
		t.Errorf("Points = %d, want 100", eval.Points)
	}
	if eval.Tier != TierHigh {
		t.Errorf("Tier = %q, want %q", eval.Tier, TierHigh)
	}
}

func TestScoreSuspiciousClickbait(t *testing.T) {
	eval := Score(
		"http://breaking-story.xyz/post",
		"shocking hack",
		"you won't believe this unconfirmed rumor",
	)

	// domain -20 plus quality -30 goes negative and clamps to zero.
	if eval.Points != 0 {
		t.Errorf("Points = %d, want 0", eval.Points)
	}
	if eval.Tier != TierLow {
		t.Errorf("Tier = %q, want %q", eval.Tier, TierLow)
	}
}

func TestScoreMediumTier(t *testing.T) {
	eval := Score(
		"https://medium.com/@analyst/writeup",
		"a ransomware incident writeup",
		"some general observations",
	)

	// community platform +20, clean content +10.
	if eval.Points != 30 {
		t.Errorf("Points = %d, want 30", eval.Points)
	}
	if eval.Tier != TierMedium {
		t.Errorf("Tier = %q, want %q", eval.Tier, TierMedium)
	}
}

func TestScoreKeepsAllFactors(t *testing.T) {
	eval := Score("https://example.org/a", "title", "description")
	if len(eval.Factors) != 5 {
		t.Fatalf("len(Factors) = %d, want 5", len(eval.Factors))
	}

	wantNames := []string{"domain", "technical_content", "official_source", "content_quality", "specificity"}
	for i, name := range wantNames {
		if eval.Factors[i].Name != name {
			t.Errorf("Factors[%d].Name = %q, want %q", i, eval.Factors[i].Name, name)
		}
		if eval.Factors[i].Reason == "" {
			t.Errorf("Factors[%d] has empty reason", i)
		}
	}
}

func TestEvaluateDomain(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   int
	}{
		{"recognized outlet", "https://reuters.com/article", 40},
		{"www prefix stripped", "https://www.elpais.com/tecnologia", 40},
		{"official institution", "https://www.cisa.gov/advisories/aa24-1", 40},
		{"community platform", "https://github.com/org/iocs", 20},
		{"throwaway tld", "http://free-alerts.tk/x", -20},
		{"link shortener", "https://bit.ly/3abc", -20},
		{"unknown source", "https://example.org/post", 0},
		{"empty url", "", 0},
		{"no host", "not a url", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evaluateDomain(tt.rawURL); got.Points != tt.want {
				t.Errorf("evaluateDomain(%q).Points = %d, want %d", tt.rawURL, got.Points, tt.want)
			}
		})
	}
}

func TestEvaluateSpecificityAdditive(t *testing.T) {
	got := evaluateSpecificity("Acme Corp breached", "in 2024 attackers took 5 million records")
	if got.Points != 25 {
		t.Errorf("Points = %d, want 25 (organization + date + figures)", got.Points)
	}

	if got := evaluateSpecificity("something happened", "somewhere"); got.Points != 0 {
		t.Errorf("generic text Points = %d, want 0", got.Points)
	}
}

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		points int
		want   Tier
	}{
		{0, TierLow},
		{29, TierLow},
		{30, TierMedium},
		{59, TierMedium},
		{60, TierHigh},
		{100, TierHigh},
	}
	for _, tt := range tests {
		if got := tierFor(tt.points); got != tt.want {
			t.Errorf("tierFor(%d) = %q, want %q", tt.points, got, tt.want)
		}
	}
}
