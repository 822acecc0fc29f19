// Package store persists incident records to an append-friendly tabular
// file. The URL column is the natural key: the whole deduplication scheme
// rests on it being globally unique across the store.
package store

import (
	"ransomwatch/internal/classify"
	"ransomwatch/internal/intel"
	"ransomwatch/internal/scoring"
)

// Header is the fixed column order of the durable store. The trailing
// threat_intel_payload column is a backward-compatible addition; readers
// must tolerate rows that predate it.
var Header = []string{
	"date", "actor", "source_name", "event_type",
	"indicator_text", "url", "confidence_tier", "threat_intel_payload",
}

// Record is the persisted unit: one deduplicated candidate ransomware news
// item. Records are created once and never updated after persistence.
type Record struct {
	Date          string             `json:"date"` // ISO calendar date
	Actor         string             `json:"actor"`
	SourceName    string             `json:"source_name"`
	EventType     classify.EventType `json:"event_type"`
	IndicatorText string             `json:"indicator_text"`
	URL           string             `json:"url"`
	Tier          scoring.Tier       `json:"confidence_tier"`
	// ThreatIntel is nil when no enrichment ran, including for historical
	// rows written before the column existed.
	ThreatIntel *intel.Result `json:"threat_intel,omitempty"`
}

// Store is the durable record store.
type Store interface {
	// KnownURLs returns the set of already-persisted URLs, loaded once at
	// the start of a run to seed the dedup set.
	KnownURLs() (map[string]struct{}, error)
	// Append persists one new record.
	Append(rec Record) error
	// All reads every persisted record.
	All() ([]Record, error)
}
