// Package pipeline drives collection runs: fetch, filter, classify, score,
// enrich, deduplicate, persist.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ransomwatch/internal/classify"
	"ransomwatch/internal/feed"
	"ransomwatch/internal/intel"
	"ransomwatch/internal/metrics"
	"ransomwatch/internal/scoring"
	"ransomwatch/internal/store"
)

// maxIndicatorLen truncates titles used as the indicator snippet.
const maxIndicatorLen = 120

// Options tune one Pipeline. Zero values get sensible defaults in New.
type Options struct {
	// MaxEnrichPerSource bounds reputation lookups per feed source so one
	// run stays within external quotas.
	MaxEnrichPerSource int
	// CheckURLAccess enables the reachability probe; unreachable item URLs
	// are downgraded to low confidence, not discarded.
	CheckURLAccess bool
	// Progress receives machine-readable run markers, one line per source
	// plus a terminal completion marker.
	Progress io.Writer
	// HTTPClient performs the reachability probes.
	HTTPClient *http.Client
	// Now supplies the collection timestamp; tests override it.
	Now func() time.Time
}

// Pipeline executes finite collection runs over a set of feed sources.
// State is run-scoped: the dedup set is rebuilt from the store every run.
type Pipeline struct {
	sources  []feed.Source
	store    store.Store
	enricher *intel.Enricher // nil disables enrichment; scoring still runs
	logger   *zap.Logger
	opts     Options
}

// New creates a pipeline. enricher may be nil when threat intel credentials
// are not configured.
func New(sources []feed.Source, st store.Store, enricher *intel.Enricher, logger *zap.Logger, opts Options) *Pipeline {
	if opts.MaxEnrichPerSource <= 0 {
		opts.MaxEnrichPerSource = 5
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 6 * time.Second}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		sources:  sources,
		store:    st,
		enricher: enricher,
		logger:   logger,
		opts:     opts,
	}
}

// Run executes one collection pass and returns the number of newly persisted
// records. Source failures are logged and skipped; only a broken store or a
// cancelled context aborts the run.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	known, err := p.store.KnownURLs()
	if err != nil {
		return 0, fmt.Errorf("loading known URLs: %w", err)
	}
	p.logger.Info("collection run starting",
		zap.Int("sources", len(p.sources)),
		zap.Int("known_urls", len(known)))

	added := 0
	total := len(p.sources)
	for i, src := range p.sources {
		fmt.Fprintf(p.opts.Progress, "PROGRESS %d/%d %s\n", i+1, total, src.Name())

		entries, err := src.Fetch(ctx)
		if err != nil {
			p.logger.Warn("source fetch failed, skipping",
				zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		metrics.EntriesFetched.WithLabelValues(src.Name()).Add(float64(len(entries)))

		enriched := 0
		for _, entry := range entries {
			select {
			case <-ctx.Done():
				return added, ctx.Err()
			default:
			}

			rec, ok := p.process(ctx, entry, known, &enriched)
			if !ok {
				continue
			}
			if err := p.store.Append(*rec); err != nil {
				p.logger.Error("persisting record failed",
					zap.String("url", rec.URL), zap.Error(err))
				continue
			}
			known[rec.URL] = struct{}{}
			metrics.RecordsPersisted.WithLabelValues(string(rec.Tier)).Inc()
			added++
		}
	}

	fmt.Fprintln(p.opts.Progress, "PROGRESS COMPLETE")
	p.logger.Info("collection run finished", zap.Int("new_records", added))
	return added, nil
}

// process turns one raw entry into a record, or rejects it. enriched counts
// reputation lookups already spent on the current source.
func (p *Pipeline) process(ctx context.Context, entry feed.Entry, known map[string]struct{}, enriched *int) (*store.Record, bool) {
	if entry.Link == "" || entry.Title == "" {
		metrics.EntriesRejected.WithLabelValues("malformed").Inc()
		return nil, false
	}
	if _, seen := known[entry.Link]; seen {
		metrics.EntriesRejected.WithLabelValues("duplicate").Inc()
		return nil, false
	}

	text := entry.Title + " " + entry.Summary
	if !classify.Relevant(text) {
		metrics.EntriesRejected.WithLabelValues("irrelevant").Inc()
		return nil, false
	}

	eval := scoring.Score(entry.Link, entry.Title, entry.Summary)
	tier := eval.Tier

	if p.opts.CheckURLAccess && !p.accessible(ctx, entry.Link) {
		p.logger.Debug("item URL unreachable, downgrading",
			zap.String("url", entry.Link))
		tier = scoring.TierLow
	}

	rec := &store.Record{
		Date:          entry.Date(p.opts.Now()),
		Actor:         classify.DetectActor(text),
		SourceName:    entry.Source,
		EventType:     classify.DetectType(text),
		IndicatorText: indicatorText(text, entry.Title),
		URL:           entry.Link,
		Tier:          tier,
	}

	// High-confidence items skip external verification; everything else is
	// escalated until the per-source budget is spent.
	if rec.Tier != scoring.TierHigh && p.enricher != nil && *enriched < p.opts.MaxEnrichPerSource {
		*enriched++
		result, err := p.enricher.Enrich(ctx, entry.Link, entry.Title, entry.Summary)
		if err != nil {
			p.logger.Warn("enrichment failed, keeping scorer tier",
				zap.String("url", entry.Link), zap.Error(err))
		} else {
			adjusted := intel.Adjust(rec.Tier, result.ThreatScore)
			if adjusted != rec.Tier {
				metrics.TierDowngrades.Inc()
				p.logger.Info("tier downgraded by threat intel",
					zap.String("url", entry.Link),
					zap.Int("threat_score", result.ThreatScore),
					zap.String("from", string(rec.Tier)),
					zap.String("to", string(adjusted)))
			}
			rec.Tier = adjusted
			rec.ThreatIntel = result
		}
	}

	return rec, true
}

// accessible probes a URL with HEAD, falling back to GET since some sites
// reject HEAD.
func (p *Pipeline) accessible(ctx context.Context, rawURL string) bool {
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return false
		}
		resp, err := p.opts.HTTPClient.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 400 {
			return true
		}
	}
	return false
}

// indicatorText is the free-text snippet persisted with a record: the
// matched actor terms when any are present, otherwise the truncated title.
func indicatorText(text, title string) string {
	if aliases := classify.MatchedAliases(text); len(aliases) > 0 {
		return strings.Join(aliases, ", ")
	}
	runes := []rune(title)
	if len(runes) > maxIndicatorLen {
		return string(runes[:maxIndicatorLen])
	}
	return title
}
