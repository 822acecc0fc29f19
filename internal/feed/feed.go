// Package feed pulls raw entries from configured news sources over HTTP.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry is one raw feed item. Entries are ephemeral: consumed once per
// pipeline pass and never persisted directly.
type Entry struct {
	Title     string
	Summary   string
	Link      string
	Published string
	// PublishedAt is nil when the feed carried no parseable timestamp.
	PublishedAt *time.Time
	Source      string
}

// Date returns the entry's calendar date in ISO form, falling back to the
// collection time when the feed timestamp could not be parsed.
func (e Entry) Date(now time.Time) string {
	if e.PublishedAt != nil {
		return e.PublishedAt.UTC().Format("2006-01-02")
	}
	return now.UTC().Format("2006-01-02")
}

// Source yields a batch of raw entries from one feed.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Entry, error)
}

func newParser() *gofeed.Parser {
	p := gofeed.NewParser()
	p.UserAgent = "ransomwatch/1.0"
	return p
}

// GoogleNewsSource queries the Google News search RSS endpoint for a term.
type GoogleNewsSource struct {
	query    string
	language string
	country  string
	parser   *gofeed.Parser
}

// NewGoogleNewsSource creates a source for one search query. language and
// country select the Google News edition (e.g. "es", "ES").
func NewGoogleNewsSource(query, language, country string) *GoogleNewsSource {
	return &GoogleNewsSource{
		query:    query,
		language: language,
		country:  country,
		parser:   newParser(),
	}
}

func (s *GoogleNewsSource) Name() string { return "news:" + s.query }

// URL builds the search RSS endpoint for the configured query and edition.
func (s *GoogleNewsSource) URL() string {
	return fmt.Sprintf(
		"https://news.google.com/rss/search?q=%s&hl=%s&gl=%s&ceid=%s:%s",
		url.QueryEscape(s.query), s.language, s.country, s.country, s.language,
	)
}

func (s *GoogleNewsSource) Fetch(ctx context.Context) ([]Entry, error) {
	return fetchFeed(ctx, s.parser, s.URL(), s.Name())
}

// RSSSource reads a feed directly from a fixed URL.
type RSSSource struct {
	name   string
	url    string
	parser *gofeed.Parser
}

// NewRSSSource creates a source over a direct feed URL.
func NewRSSSource(name, feedURL string) *RSSSource {
	return &RSSSource{name: name, url: feedURL, parser: newParser()}
}

func (s *RSSSource) Name() string { return s.name }

func (s *RSSSource) Fetch(ctx context.Context) ([]Entry, error) {
	return fetchFeed(ctx, s.parser, s.url, s.name)
}

func fetchFeed(ctx context.Context, parser *gofeed.Parser, feedURL, sourceName string) ([]Entry, error) {
	parsed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", sourceName, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entry := Entry{
			Title:     strings.TrimSpace(item.Title),
			Summary:   item.Description,
			Link:      strings.TrimSpace(item.Link),
			Published: item.Published,
			Source:    sourceName,
		}
		if entry.Summary == "" {
			entry.Summary = item.Content
		}
		// gofeed parses the loose date formats feeds actually use; entries
		// it cannot parse keep a nil PublishedAt and fall back later.
		if item.PublishedParsed != nil {
			entry.PublishedAt = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			entry.PublishedAt = item.UpdatedParsed
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
