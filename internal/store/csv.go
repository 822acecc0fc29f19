package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"ransomwatch/internal/classify"
	"ransomwatch/internal/intel"
	"ransomwatch/internal/scoring"
)

// CSVStore is the file-backed Store. Writes are append-only; the header row
// is written once when the file is first created.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVStore creates a store over the file at path. The file is created
// lazily on first append.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) KnownURLs() (map[string]struct{}, error) {
	records, err := s.All()
	if err != nil {
		return nil, err
	}
	urls := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.URL != "" {
			urls[rec.URL] = struct{}{}
		}
	}
	return urls, nil
}

func (s *CSVStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat store: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	payload := ""
	if rec.ThreatIntel != nil {
		data, err := json.Marshal(rec.ThreatIntel)
		if err != nil {
			return fmt.Errorf("encoding threat intel payload: %w", err)
		}
		payload = string(data)
	}

	row := []string{
		rec.Date,
		rec.Actor,
		rec.SourceName,
		string(rec.EventType),
		rec.IndicatorText,
		rec.URL,
		string(rec.Tier),
		payload,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	w.Flush()
	return w.Error()
}

func (s *CSVStore) All() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Historical rows predate the threat_intel_payload column, so row
	// lengths vary.
	r.FieldsPerRecord = -1

	var records []Record
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading store: %w", err)
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == Header[0] {
				continue
			}
		}
		if len(row) < 7 {
			continue
		}

		rec := Record{
			Date:          row[0],
			Actor:         row[1],
			SourceName:    row[2],
			EventType:     classify.EventType(row[3]),
			IndicatorText: row[4],
			URL:           row[5],
			Tier:          scoring.Tier(row[6]),
		}
		if len(row) >= 8 && row[7] != "" {
			var result intel.Result
			// An unreadable payload is treated the same as an absent one:
			// no enrichment attempted, no confidence change inferred.
			if err := json.Unmarshal([]byte(row[7]), &result); err == nil {
				rec.ThreatIntel = &result
			}
		}
		records = append(records, rec)
	}

	return records, nil
}
