package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"ransomwatch/internal/ratelimit"
)

const abuseDefaultBaseURL = "https://api.abuseipdb.com"

// AbuseIPDBConfig holds IP-reputation service configuration.
type AbuseIPDBConfig struct {
	APIKeyEnv  string        `yaml:"api_key_env"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RateLimit  int           `yaml:"rate_limit"` // requests per minute
	MaxAgeDays int           `yaml:"max_age_days"`
}

// DefaultAbuseIPDBConfig returns sensible defaults.
func DefaultAbuseIPDBConfig() AbuseIPDBConfig {
	return AbuseIPDBConfig{
		APIKeyEnv:  "ABUSEIPDB_API_KEY",
		BaseURL:    abuseDefaultBaseURL,
		Timeout:    10 * time.Second,
		RateLimit:  60,
		MaxAgeDays: 90,
	}
}

// AbuseIPDBClient queries abuse-confidence scores for IP addresses.
type AbuseIPDBClient struct {
	config     AbuseIPDBConfig
	httpClient *http.Client
	pacer      ratelimit.Pacer
}

// NewAbuseIPDBClient creates a client. The API key is read from the
// configured environment variable; a missing key is a startup error.
func NewAbuseIPDBClient(config AbuseIPDBConfig, pacer ratelimit.Pacer) (*AbuseIPDBClient, error) {
	if os.Getenv(config.APIKeyEnv) == "" {
		return nil, fmt.Errorf("AbuseIPDB API key not found in env var: %s", config.APIKeyEnv)
	}
	if config.BaseURL == "" {
		config.BaseURL = abuseDefaultBaseURL
	}
	if config.MaxAgeDays <= 0 {
		config.MaxAgeDays = 90
	}
	if pacer == nil {
		pacer = ratelimit.Unlimited{}
	}

	return &AbuseIPDBClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		pacer:      pacer,
	}, nil
}

// IPReport summarizes the abuse reputation of one IP address.
type IPReport struct {
	IP           string `json:"ip"`
	AbuseScore   int    `json:"abuse_score"` // 0-100, higher is worse
	TotalReports int    `json:"total_reports"`
	Whitelisted  bool   `json:"is_whitelisted"`
}

// CheckIP queries the abuse-confidence score for ip.
func (c *AbuseIPDBClient) CheckIP(ctx context.Context, ip string) (*IPReport, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("ipAddress", ip)
	query.Set("maxAgeInDays", strconv.Itoa(c.config.MaxAgeDays))

	fullURL := strings.TrimSuffix(c.config.BaseURL, "/") + "/api/v2/check?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating check request: %w", err)
	}
	req.Header.Set("Key", os.Getenv(c.config.APIKeyEnv))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ransomwatch/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("AbuseIPDB lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("AbuseIPDB returned %d: %s", resp.StatusCode, string(body))
	}

	var check abuseCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&check); err != nil {
		return nil, fmt.Errorf("decoding AbuseIPDB response: %w", err)
	}

	return &IPReport{
		IP:           ip,
		AbuseScore:   check.Data.AbuseConfidenceScore,
		TotalReports: check.Data.TotalReports,
		Whitelisted:  check.Data.IsWhitelisted,
	}, nil
}

type abuseCheckResponse struct {
	Data struct {
		AbuseConfidenceScore int  `json:"abuseConfidenceScore"`
		TotalReports         int  `json:"totalReports"`
		IsWhitelisted        bool `json:"isWhitelisted"`
	} `json:"data"`
}
