package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ransomwatch/internal/classify"
	"ransomwatch/internal/intel"
	"ransomwatch/internal/scoring"
)

func testRecord(url string) Record {
	return Record{
		Date:          "2026-08-30",
		Actor:         "LockBit",
		SourceName:    "news:LockBit",
		EventType:     classify.EventTypeLeak,
		IndicatorText: "lockbit",
		URL:           url,
		Tier:          scoring.TierMedium,
	}
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	s := NewCSVStore(path)

	if err := s.Append(testRecord("https://example.com/a")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(testRecord("https://example.com/b")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := strings.Count(string(data), "date,actor,source_name"); got != 1 {
		t.Errorf("header written %d times, want 1", got)
	}

	records, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
}

func TestAppendCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "events.csv")
	s := NewCSVStore(path)

	if err := s.Append(testRecord("https://example.com/a")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file missing: %v", err)
	}
}

func TestAllOnMissingFile(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "absent.csv"))
	records, err := s.All()
	if err != nil {
		t.Fatalf("All on missing file: %v", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
}

func TestKnownURLs(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "events.csv"))
	for _, u := range []string{"https://example.com/a", "https://example.com/b"} {
		if err := s.Append(testRecord(u)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	known, err := s.KnownURLs()
	if err != nil {
		t.Fatalf("KnownURLs: %v", err)
	}
	if len(known) != 2 {
		t.Errorf("len(known) = %d, want 2", len(known))
	}
	if _, ok := known["https://example.com/a"]; !ok {
		t.Error("known URLs missing https://example.com/a")
	}
}

// Rows written before the threat_intel_payload column existed have seven
// fields. They must read back as records with no enrichment attached.
func TestAllReadsLegacyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	legacy := strings.Join(Header[:7], ",") + "\n" +
		"2025-11-02,Qilin,news:Qilin,mention,qilin,https://example.com/old,low\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := NewCSVStore(path)
	records, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Actor != "Qilin" || rec.Tier != scoring.TierLow {
		t.Errorf("legacy record parsed wrong: %+v", rec)
	}
	if rec.ThreatIntel != nil {
		t.Errorf("legacy record ThreatIntel = %+v, want nil", rec.ThreatIntel)
	}

	// Appends after the legacy rows use the full column set.
	if err := s.Append(testRecord("https://example.com/new")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	records, err = s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) after append = %d, want 2", len(records))
	}
}

func TestThreatIntelPayloadRoundtrip(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "events.csv"))

	rec := testRecord("https://example.com/enriched")
	rec.ThreatIntel = &intel.Result{
		URLReport:   &intel.URLReport{Malicious: 3, Clean: 57, Score: 8.57},
		ThreatScore: 30,
		Verdict:     "malicious URL (3 detections)",
	}
	if err := s.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	got := records[0].ThreatIntel
	if got == nil {
		t.Fatal("ThreatIntel is nil after roundtrip")
	}
	if got.ThreatScore != 30 || got.Verdict != "malicious URL (3 detections)" {
		t.Errorf("payload = %+v", got)
	}
	if got.URLReport == nil || got.URLReport.Malicious != 3 {
		t.Errorf("URLReport = %+v", got.URLReport)
	}
}

func TestAllSkipsShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	content := strings.Join(Header, ",") + "\n" +
		"garbage,row\n" +
		"2026-01-15,Akira,news:Akira,leak,akira,https://example.com/ok,high,\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	records, err := NewCSVStore(path).All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1 (short row skipped)", len(records))
	}
	if records[0].Actor != "Akira" {
		t.Errorf("Actor = %q, want Akira", records[0].Actor)
	}
}
