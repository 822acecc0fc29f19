// Package app wires configured components for the ransomwatch binaries.
package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"ransomwatch/internal/cache"
	"ransomwatch/internal/config"
	"ransomwatch/internal/feed"
	"ransomwatch/internal/intel"
	"ransomwatch/internal/ratelimit"
)

// BuildLogger constructs the zap logger described by cfg.
func BuildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}

// BuildSources turns the collection config into feed sources: one Google
// News search feed per query plus any direct RSS feeds.
func BuildSources(cfg config.CollectionConfig) []feed.Source {
	var sources []feed.Source
	for _, q := range cfg.Queries {
		sources = append(sources, feed.NewGoogleNewsSource(q, cfg.Language, cfg.Country))
	}
	for _, f := range cfg.Feeds {
		sources = append(sources, feed.NewRSSSource(f.Name, f.URL))
	}
	return sources
}

// BuildEnricher wires the reputation clients, their pacers, and the
// verification cache. Returns nil when threat intel is disabled; the
// pipeline then runs on the scorer alone.
func BuildEnricher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*intel.Enricher, error) {
	if !cfg.ThreatIntel.Enabled {
		return nil, nil
	}

	verifyCache, err := BuildCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	vt, err := intel.NewVirusTotalClient(
		cfg.ThreatIntel.VirusTotal,
		ratelimit.PerMinute(cfg.ThreatIntel.VirusTotal.RateLimit),
	)
	if err != nil {
		return nil, err
	}

	abuse, err := intel.NewAbuseIPDBClient(
		cfg.ThreatIntel.AbuseIPDB,
		ratelimit.PerMinute(cfg.ThreatIntel.AbuseIPDB.RateLimit),
	)
	if err != nil {
		return nil, err
	}

	return intel.NewEnricher(vt, abuse, verifyCache, logger), nil
}

// BuildCache constructs the configured verification cache backend.
func BuildCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (cache.Cache, error) {
	if cfg.Backend == "redis" {
		r := cache.NewRedis(
			cfg.Redis.Addr,
			os.Getenv(cfg.Redis.PasswordEnv),
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err := r.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis cache unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		return r, nil
	}
	size := cfg.Size
	if size <= 0 {
		size = 1024
	}
	return cache.NewMemory(size)
}
