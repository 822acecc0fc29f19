// Command collector runs one finite collection pass over the configured
// news sources and appends new incident records to the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"ransomwatch/internal/app"
	"ransomwatch/internal/config"
	"ransomwatch/internal/pipeline"
	"ransomwatch/internal/store"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	noEnrich := flag.Bool("no-enrich", false, "Skip threat intel enrichment for this run")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ransomwatch collector %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *noEnrich {
		cfg.ThreatIntel.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.BuildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting collector",
		zap.String("version", Version),
		zap.String("config", *configPath),
		zap.Bool("enrichment", cfg.ThreatIntel.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enricher, err := app.BuildEnricher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("enrichment setup failed", zap.Error(err))
	}

	p := pipeline.New(
		app.BuildSources(cfg.Collection),
		store.NewCSVStore(cfg.Store.Path),
		enricher,
		logger,
		pipeline.Options{
			MaxEnrichPerSource: cfg.Collection.MaxEnrichPerSource,
			CheckURLAccess:     cfg.Collection.CheckURLAccess,
			Progress:           os.Stdout,
			HTTPClient:         &http.Client{Timeout: cfg.Collection.ProbeTimeout},
		},
	)

	added, err := p.Run(ctx)
	if err != nil {
		logger.Fatal("collection run failed", zap.Error(err))
	}
	logger.Info("done", zap.Int("new_records", added))
}
