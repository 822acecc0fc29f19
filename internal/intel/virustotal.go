// Package intel escalates uncertain items to external reputation services
// and folds adverse findings back into their confidence tier.
package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"ransomwatch/internal/ratelimit"
)

const (
	vtDefaultBaseURL = "https://www.virustotal.com"
	vtAPIPath        = "/api/v3"
)

// VirusTotalConfig holds URL-reputation service configuration.
type VirusTotalConfig struct {
	APIKeyEnv string        `yaml:"api_key_env"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit int           `yaml:"rate_limit"` // requests per minute; free tier is 4
	PollDelay time.Duration `yaml:"poll_delay"` // wait before fetching analysis results
}

// DefaultVirusTotalConfig returns sensible defaults.
func DefaultVirusTotalConfig() VirusTotalConfig {
	return VirusTotalConfig{
		APIKeyEnv: "VIRUSTOTAL_API_KEY",
		BaseURL:   vtDefaultBaseURL,
		Timeout:   10 * time.Second,
		RateLimit: 4,
		PollDelay: 2 * time.Second,
	}
}

// VirusTotalClient submits URLs for analysis and retrieves detection stats.
type VirusTotalClient struct {
	config     VirusTotalConfig
	httpClient *http.Client
	pacer      ratelimit.Pacer
}

// NewVirusTotalClient creates a client. The API key is read from the
// configured environment variable; a missing key is a startup error.
func NewVirusTotalClient(config VirusTotalConfig, pacer ratelimit.Pacer) (*VirusTotalClient, error) {
	if os.Getenv(config.APIKeyEnv) == "" {
		return nil, fmt.Errorf("VirusTotal API key not found in env var: %s", config.APIKeyEnv)
	}
	if config.BaseURL == "" {
		config.BaseURL = vtDefaultBaseURL
	}
	if pacer == nil {
		pacer = ratelimit.Unlimited{}
	}

	return &VirusTotalClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		pacer:      pacer,
	}, nil
}

// URLReport summarizes detection counts for a submitted URL.
type URLReport struct {
	Malicious  int     `json:"malicious"`
	Suspicious int     `json:"suspicious"`
	Clean      int     `json:"clean"`
	Score      float64 `json:"score"` // 0-100, higher is worse
}

// CheckURL submits target for analysis and polls once after a fixed delay
// for the detection stats.
func (c *VirusTotalClient) CheckURL(ctx context.Context, target string) (*URLReport, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("url", target)
	req, err := c.newRequest(ctx, http.MethodPost, "/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submitting URL to VirusTotal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("VirusTotal submit returned %d: %s", resp.StatusCode, string(body))
	}

	var submit vtSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submit); err != nil {
		return nil, fmt.Errorf("decoding VirusTotal submit response: %w", err)
	}

	// Analyses usually complete within seconds; a single delayed poll keeps
	// quota usage at two calls per URL.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.config.PollDelay):
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	req, err = c.newRequest(ctx, http.MethodGet, "/analyses/"+url.PathEscape(submit.Data.ID), nil)
	if err != nil {
		return nil, fmt.Errorf("creating analysis request: %w", err)
	}

	resp, err = c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching VirusTotal analysis: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("VirusTotal analysis returned status %d", resp.StatusCode)
	}

	var analysis vtAnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("decoding VirusTotal analysis: %w", err)
	}

	stats := analysis.Data.Attributes.Stats
	total := stats.Malicious + stats.Suspicious + stats.Harmless + stats.Undetected
	score := 0.0
	if total > 0 {
		score = float64(stats.Malicious*2+stats.Suspicious) / float64(total) * 100
	}

	return &URLReport{
		Malicious:  stats.Malicious,
		Suspicious: stats.Suspicious,
		Clean:      stats.Harmless,
		Score:      math.Round(score*100) / 100,
	}, nil
}

// newRequest creates an authenticated VirusTotal API request.
func (c *VirusTotalClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	fullURL := strings.TrimSuffix(c.config.BaseURL, "/") + vtAPIPath + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("x-apikey", os.Getenv(c.config.APIKeyEnv))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ransomwatch/1.0")

	return req, nil
}

// VirusTotal API response types.

type vtSubmitResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type vtAnalysisResponse struct {
	Data struct {
		Attributes struct {
			Stats vtStats `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

type vtStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
}
