package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Security News</title>
    <item>
      <title>  LockBit claims new victim  </title>
      <link>https://example.com/a</link>
      <description>stolen data leaked online</description>
      <pubDate>Mon, 24 Aug 2026 10:30:00 GMT</pubDate>
    </item>
    <item>
      <title>Undated advisory</title>
      <link>https://example.com/b</link>
      <description>details pending</description>
    </item>
  </channel>
</rss>`

func TestRSSSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	src := NewRSSSource("testfeed", srv.URL)
	if src.Name() != "testfeed" {
		t.Errorf("Name = %q, want testfeed", src.Name())
	}

	entries, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	first := entries[0]
	if first.Title != "LockBit claims new victim" {
		t.Errorf("Title = %q (whitespace should be trimmed)", first.Title)
	}
	if first.Link != "https://example.com/a" {
		t.Errorf("Link = %q", first.Link)
	}
	if first.Summary != "stolen data leaked online" {
		t.Errorf("Summary = %q", first.Summary)
	}
	if first.Source != "testfeed" {
		t.Errorf("Source = %q", first.Source)
	}
	if first.PublishedAt == nil {
		t.Fatal("PublishedAt is nil for dated item")
	}
	if got := first.Date(time.Now()); got != "2026-08-24" {
		t.Errorf("Date = %q, want 2026-08-24", got)
	}

	second := entries[1]
	if second.PublishedAt != nil {
		t.Errorf("PublishedAt = %v for undated item, want nil", second.PublishedAt)
	}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	if got := second.Date(now); got != "2026-08-31" {
		t.Errorf("Date fallback = %q, want 2026-08-31", got)
	}
}

func TestRSSSourceFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewRSSSource("broken", srv.URL).Fetch(context.Background()); err == nil {
		t.Fatal("Fetch on failing feed returned nil error")
	}
}

func TestGoogleNewsSourceURL(t *testing.T) {
	src := NewGoogleNewsSource("data leak", "es", "ES")

	if src.Name() != "news:data leak" {
		t.Errorf("Name = %q", src.Name())
	}
	want := "https://news.google.com/rss/search?q=data+leak&hl=es&gl=ES&ceid=ES:es"
	if got := src.URL(); got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}

func TestEntryDateUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	published := time.Date(2026, 3, 1, 2, 0, 0, 0, loc) // 2026-02-28 17:00 UTC
	e := Entry{PublishedAt: &published}

	if got := e.Date(time.Now()); got != "2026-02-28" {
		t.Errorf("Date = %q, want 2026-02-28", got)
	}
}
