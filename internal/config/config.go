// Package config provides configuration management for ransomwatch.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ransomwatch/internal/intel"
)

// Config holds all ransomwatch configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Collection  CollectionConfig  `yaml:"collection"`
	ThreatIntel ThreatIntelConfig `yaml:"threat_intel"`
	Cache       CacheConfig       `yaml:"cache"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// StoreConfig locates the durable record store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CollectionConfig holds feed source and run settings.
type CollectionConfig struct {
	// Queries become Google News search feeds.
	Queries []string `yaml:"queries"`
	// Feeds are direct RSS feed URLs.
	Feeds []FeedConfig `yaml:"feeds"`
	// Language and Country select the Google News edition.
	Language string `yaml:"language"`
	Country  string `yaml:"country"`
	// MaxEnrichPerSource bounds reputation lookups per source per run.
	MaxEnrichPerSource int `yaml:"max_enrich_per_source"`
	// CheckURLAccess enables the item URL reachability probe.
	CheckURLAccess bool          `yaml:"check_url_access"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
}

// FeedConfig is one direct RSS feed.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ThreatIntelConfig holds reputation service settings. When Enabled, both
// credential env vars must be set or startup fails; with Enabled false the
// pipeline runs on scorer output alone.
type ThreatIntelConfig struct {
	Enabled    bool                   `yaml:"enabled"`
	VirusTotal intel.VirusTotalConfig `yaml:"virustotal"`
	AbuseIPDB  intel.AbuseIPDBConfig  `yaml:"abuseipdb"`
}

// CacheConfig selects the verification cache backend.
type CacheConfig struct {
	Backend string        `yaml:"backend"` // memory or redis
	Size    int           `yaml:"size"`    // memory backend entry bound
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Load reads configuration from a YAML file on top of defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "data/events.csv",
		},
		Collection: CollectionConfig{
			Queries:            []string{"LockBit", "Qilin", "BlackCat", "ransomware", "data leak"},
			Language:           "es",
			Country:            "ES",
			MaxEnrichPerSource: 5,
			CheckURLAccess:     true,
			ProbeTimeout:       6 * time.Second,
		},
		ThreatIntel: ThreatIntelConfig{
			Enabled:    false,
			VirusTotal: intel.DefaultVirusTotalConfig(),
			AbuseIPDB:  intel.DefaultAbuseIPDBConfig(),
		},
		Cache: CacheConfig{
			Backend: "memory",
			Size:    1024,
			TTL:     1 * time.Hour,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate enforces startup-time invariants. Missing mandatory credentials
// for requested features are the only fatal startup condition.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if len(c.Collection.Queries) == 0 && len(c.Collection.Feeds) == 0 {
		return fmt.Errorf("at least one collection query or feed is required")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.ThreatIntel.Enabled {
		if os.Getenv(c.ThreatIntel.VirusTotal.APIKeyEnv) == "" {
			return fmt.Errorf("threat intel enabled but %s is not set", c.ThreatIntel.VirusTotal.APIKeyEnv)
		}
		if os.Getenv(c.ThreatIntel.AbuseIPDB.APIKeyEnv) == "" {
			return fmt.Errorf("threat intel enabled but %s is not set", c.ThreatIntel.AbuseIPDB.APIKeyEnv)
		}
	}
	return nil
}
