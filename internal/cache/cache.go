// Package cache provides the verification cache injected into the pipeline.
// A cache instance is scoped to one collection run when backed by memory; the
// Redis backend additionally lets verification results survive across runs.
package cache

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"ransomwatch/internal/metrics"
)

// Cache memoizes verification results keyed by URL or IP. Values are
// JSON-serialized so both backends share semantics.
type Cache interface {
	// Get unmarshals the cached value for key into dest. The boolean reports
	// whether the key was present and unexpired.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is a bounded in-process cache. It is the default backend and holds
// run-scoped state only.
type Memory struct {
	entries *lru.Cache[string, memoryEntry]
}

// NewMemory creates a memory cache holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &Memory{entries: entries}, nil
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	entry, ok := m.entries.Get(key)
	if !ok {
		metrics.CacheMisses.WithLabelValues("memory").Inc()
		return false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.entries.Remove(key)
		metrics.CacheMisses.WithLabelValues("memory").Inc()
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		metrics.CacheErrors.WithLabelValues("memory", "unmarshal").Inc()
		return false, err
	}
	metrics.CacheHits.WithLabelValues("memory").Inc()
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("memory", "marshal").Inc()
		return err
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries.Add(key, entry)
	return nil
}
