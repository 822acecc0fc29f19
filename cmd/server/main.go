// Command server exposes the persisted incident records over HTTP: the read
// API an external dashboard consumes, aggregate stats, prometheus metrics,
// and a trigger to start a collection run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

var (
	cfg         *config.Config
	logger      *zap.Logger
	recordStore store.Store
	collecting  atomic.Bool
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ransomwatch server %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	var err error
	cfg, err = config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err = app.BuildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting server",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port))

	recordStore = store.NewCSVStore(cfg.Store.Path)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", handleHealth)
	r.Get("/ready", handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", handleListEvents)
		r.Get("/events/stats", handleEventStats)
		r.Post("/collect", handleCollect)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := <-sigChan
	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": Version})
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	// The store file may legitimately not exist before the first run; only
	// a read failure means not ready.
	if _, err := recordStore.KnownURLs(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unreadable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleListEvents returns persisted records, newest first, with optional
// actor/tier/type filters and free-text search over indicator and URL.
func handleListEvents(w http.ResponseWriter, r *http.Request) {
	records, err := recordStore.All()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	actor := r.URL.Query().Get("actor")
	tier := r.URL.Query().Get("tier")
	eventType := r.URL.Query().Get("type")
	search := strings.ToLower(r.URL.Query().Get("q"))

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	filtered := make([]store.Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if actor != "" && rec.Actor != actor {
			continue
		}
		if tier != "" && string(rec.Tier) != tier {
			continue
		}
		if eventType != "" && string(rec.EventType) != eventType {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.IndicatorText), search) &&
			!strings.Contains(strings.ToLower(rec.URL), search) {
			continue
		}
		filtered = append(filtered, rec)
		if len(filtered) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": filtered,
		"count":  len(filtered),
	})
}

type actorCount struct {
	Actor string `json:"actor"`
	Count int    `json:"count"`
}

// handleEventStats returns the aggregations the dashboard renders: totals,
// tier distribution, top actors, and monthly volumes.
func handleEventStats(w http.ResponseWriter, r *http.Request) {
	records, err := recordStore.All()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	actors := make(map[string]int)
	tiers := make(map[string]int)
	months := make(map[string]int)
	for _, rec := range records {
		actors[rec.Actor]++
		tiers[string(rec.Tier)]++
		if len(rec.Date) >= 7 {
			months[rec.Date[:7]]++
		}
	}

	top := make([]actorCount, 0, len(actors))
	for actor, count := range actors {
		top = append(top, actorCount{Actor: actor, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Actor < top[j].Actor
	})
	if len(top) > 10 {
		top = top[:10]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_events":    len(records),
		"unique_actors":   len(actors),
		"tiers":           tiers,
		"top_actors":      top,
		"events_by_month": months,
	})
}

// handleCollect starts a collection run in the background. Runs are
// serialized: a second trigger while one is active gets 409.
func handleCollect(w http.ResponseWriter, r *http.Request) {
	if !collecting.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "collection run already in progress"})
		return
	}

	go func() {
		defer collecting.Store(false)

		ctx := context.Background()
		enricher, err := app.BuildEnricher(ctx, cfg, logger)
		if err != nil {
			logger.Error("enrichment setup failed, run aborted", zap.Error(err))
			return
		}

		p := pipeline.New(
			app.BuildSources(cfg.Collection),
			recordStore,
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
			logger.Error("collection run failed", zap.Error(err))
			return
		}
		logger.Info("collection run finished", zap.Int("new_records", added))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
