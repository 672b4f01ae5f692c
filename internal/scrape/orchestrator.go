// Package scrape orchestrates one full pass over the active venues:
// bounded concurrent fetch, extractor dispatch, merge, dedup, and order.
package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/event"
	"github.com/mwhitten/stagehand/internal/extract"
	"github.com/mwhitten/stagehand/internal/metrics"
	"github.com/mwhitten/stagehand/internal/venue"
)

// PageFetcher fetches one listings page.
type PageFetcher interface {
	Load(ctx context.Context, url string) (*goquery.Document, error)
}

// Options tunes a scrape pass.
type Options struct {
	// Concurrency caps the number of in-flight venue fetches. This is a
	// hard admission limit, not advisory.
	Concurrency int
	// RetryAttempts is the total number of fetch attempts per venue.
	RetryAttempts int
	// Delay is the politeness pause applied before every attempt.
	Delay time.Duration
}

// Orchestrator runs scrape passes. A single venue's failure never aborts
// the pass; the venue just contributes zero events.
type Orchestrator struct {
	fetcher  PageFetcher
	registry *extract.Registry
	opts     Options
	logger   *zap.Logger
}

// New builds an Orchestrator.
func New(fetcher PageFetcher, registry *extract.Registry, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	metrics.Init()
	return &Orchestrator{
		fetcher:  fetcher,
		registry: registry,
		opts:     opts,
		logger:   logger,
	}
}

// ScrapeAll scrapes every active venue concurrently, bounded by the
// configured cap, and returns the merged, deduplicated event set ordered
// by start time with undated events last.
func (o *Orchestrator) ScrapeAll(ctx context.Context, venues []*venue.Descriptor) []event.Event {
	active := make([]*venue.Descriptor, 0, len(venues))
	for _, v := range venues {
		if v.Active {
			active = append(active, v)
		}
	}
	o.logger.Info("starting scrape pass",
		zap.Int("venues", len(active)),
		zap.Int("concurrency", o.opts.Concurrency),
	)

	// Fan-out with a semaphore for admission control; each goroutine
	// writes only its own slot, so the merge needs no locking.
	results := make([][]event.Event, len(active))
	sem := make(chan struct{}, o.opts.Concurrency)
	var wg sync.WaitGroup
	for i, v := range active {
		wg.Add(1)
		go func(slot int, v *venue.Descriptor) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			results[slot] = o.scrapeVenue(ctx, v)
		}(i, v)
	}
	wg.Wait()

	var all []event.Event
	for _, evts := range results {
		all = append(all, evts...)
	}
	unique := event.Dedupe(all)
	event.SortByStart(unique)

	o.logger.Info("scrape pass complete",
		zap.Int("total", len(all)),
		zap.Int("unique", len(unique)),
	)
	return unique
}

// scrapeVenue fetches and extracts one venue. Panics inside an extractor
// are contained here so one broken parser cannot take down the pass.
func (o *Orchestrator) scrapeVenue(ctx context.Context, v *venue.Descriptor) (events []event.Event) {
	defer func() {
		// LastScraped advances win or lose, bounding retry storms on
		// persistently broken venues.
		v.LastScraped = time.Now().UTC()
		if r := recover(); r != nil {
			o.logger.Error("extractor panicked",
				zap.String("venue", v.Name),
				zap.Any("panic", r),
			)
			metrics.ObserveVenue(v.Name, "panic", 0)
			events = nil
		}
	}()

	extractor := o.registry.Find(*v)
	if extractor == nil {
		o.logger.Warn("no suitable extractor for venue", zap.String("venue", v.Name))
		metrics.ObserveVenue(v.Name, "no_extractor", 0)
		return nil
	}

	doc, err := o.fetchWithRetry(ctx, v)
	if err != nil {
		o.logger.Error("venue fetch failed",
			zap.String("venue", v.Name),
			zap.String("url", v.URL),
			zap.Error(err),
		)
		metrics.ObserveVenue(v.Name, "fetch_error", 0)
		return nil
	}

	events = extractor.Extract(ctx, *v, doc)
	metrics.ObserveVenue(v.Name, "ok", len(events))
	o.logger.Info("venue scraped",
		zap.String("venue", v.Name),
		zap.String("extractor", extractor.Name()),
		zap.Int("events", len(events)),
	)
	return events
}

// CheckVenue trial-scrapes a single venue: one fetch, one extraction, no
// retries and no politeness pause. It returns the event count on success
// and the failure that prevented it otherwise, for operator diagnostics.
func (o *Orchestrator) CheckVenue(ctx context.Context, v venue.Descriptor) (int, error) {
	extractor := o.registry.Find(v)
	if extractor == nil {
		return 0, fmt.Errorf("no extractor matches venue %q", v.Name)
	}

	doc, err := o.fetcher.Load(ctx, v.URL)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", v.URL, err)
	}

	events := extractor.Extract(ctx, v, doc)
	o.logger.Info("venue check complete",
		zap.String("venue", v.Name),
		zap.String("extractor", extractor.Name()),
		zap.Int("events", len(events)),
	)
	return len(events), nil
}

func (o *Orchestrator) fetchWithRetry(ctx context.Context, v *venue.Descriptor) (*goquery.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= o.opts.RetryAttempts; attempt++ {
		if attempt > 1 {
			metrics.ObserveRetry(v.Name)
		}
		if err := pause(ctx, o.opts.Delay); err != nil {
			return nil, err
		}

		metrics.IncInFlight()
		doc, err := o.fetcher.Load(ctx, v.URL)
		metrics.DecInFlight()
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.Debug("fetch attempt failed",
			zap.String("venue", v.Name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

// pause waits for the politeness delay or until the context finishes.
func pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
