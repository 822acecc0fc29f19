// Package metrics exposes Prometheus counters for the collection pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesFetched counts raw feed entries pulled from each source.
	EntriesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ransomwatch_entries_fetched_total",
		Help: "Raw feed entries fetched, labeled by source.",
	}, []string{"source"})

	// EntriesRejected counts entries dropped before persistence.
	// Reasons: malformed, duplicate, irrelevant.
	EntriesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ransomwatch_entries_rejected_total",
		Help: "Entries rejected before persistence, labeled by reason.",
	}, []string{"reason"})

	// RecordsPersisted counts newly persisted incident records by tier.
	RecordsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ransomwatch_records_persisted_total",
		Help: "Incident records persisted, labeled by confidence tier.",
	}, []string{"tier"})

	// EnrichmentCalls counts outbound reputation lookups by service and outcome.
	EnrichmentCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ransomwatch_enrichment_calls_total",
		Help: "Reputation service calls, labeled by service and outcome.",
	}, []string{"service", "outcome"})

	// TierDowngrades counts records whose tier was lowered by enrichment.
	TierDowngrades = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ransomwatch_tier_downgrades_total",
		Help: "Records whose confidence tier was lowered by threat intel.",
	})

	// CacheHits counts verification cache hits by backend.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ransomwatch_cache_hits_total",
		Help: "Verification cache hits, labeled by backend.",
	}, []string{"backend"})

	// CacheMisses counts verification cache misses by backend.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ransomwatch_cache_misses_total",
		Help: "Verification cache misses, labeled by backend.",
	}, []string{"backend"})

	// CacheErrors counts cache operation failures by backend and operation.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ransomwatch_cache_errors_total",
		Help: "Verification cache errors, labeled by backend and operation.",
	}, []string{"backend", "operation"})
)
