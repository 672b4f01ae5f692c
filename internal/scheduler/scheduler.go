// Package scheduler drives scrape cycles on a fixed interval, isolating
// per-cycle failures behind a shorter error backoff. The loop only exits
// on context cancellation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/calendar"
	"github.com/mwhitten/stagehand/internal/event"
	"github.com/mwhitten/stagehand/internal/metrics"
	"github.com/mwhitten/stagehand/internal/venue"
)

// ErrCycleInProgress is returned when a manual trigger races an already
// running cycle.
var ErrCycleInProgress = errors.New("a scrape cycle is already in progress")

// VenueSource supplies the active venue set for a cycle.
type VenueSource interface {
	Load(ctx context.Context) ([]*venue.Descriptor, error)
}

// Scraper runs one full pass over the venues.
type Scraper interface {
	ScrapeAll(ctx context.Context, venues []*venue.Descriptor) []event.Event
}

// ArtifactWriter persists the cycle's outputs.
type ArtifactWriter interface {
	WriteCalendar(name, ics string) error
	WriteSnapshot(events []event.Event) error
	WriteStats(events []event.Event) error
}

// Config tunes loop timing and artifact naming.
type Config struct {
	Interval         time.Duration
	ErrorBackoff     time.Duration
	CalendarTitle    string
	CalendarFileName string
}

// Scheduler owns the background loop.
type Scheduler struct {
	venues  VenueSource
	scraper Scraper
	builder *calendar.Builder
	writer  ArtifactWriter
	cfg     Config
	logger  *zap.Logger
	running chan struct{}
}

// New builds a Scheduler.
func New(venues VenueSource, scraper Scraper, builder *calendar.Builder, writer ArtifactWriter, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 30 * time.Minute
	}
	metrics.Init()
	running := make(chan struct{}, 1)
	running <- struct{}{}
	return &Scheduler{
		venues:  venues,
		scraper: scraper,
		builder: builder,
		writer:  writer,
		cfg:     cfg,
		logger:  logger,
		running: running,
	}
}

// Run loops forever: run a cycle, sleep, repeat. A cycle error switches
// the sleep to the error backoff. Both the cycle and the sleep observe
// ctx, so cancellation exits promptly without re-entering a cycle.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("error_backoff", s.cfg.ErrorBackoff),
	)
	for {
		err := s.RunOnce(ctx)
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopped")
			return
		}

		delay := s.cfg.Interval
		if err != nil {
			s.logger.Error("scrape cycle failed", zap.Error(err))
			delay = s.cfg.ErrorBackoff
		} else {
			s.logger.Info("scrape cycle complete", zap.Duration("next_in", delay))
		}

		if err := sleep(ctx, delay); err != nil {
			s.logger.Info("scheduler stopped")
			return
		}
	}
}

// RunOnce executes a single scrape cycle, equivalent to one Running phase
// of the loop. It is the manual trigger path and refuses to overlap an
// in-flight cycle.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	select {
	case <-s.running:
	default:
		return ErrCycleInProgress
	}
	defer func() { s.running <- struct{}{} }()
	return s.runCycle(ctx)
}

func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	start := time.Now()
	logger := s.logger.With(zap.String("cycle_id", uuid.NewString()))
	defer func() {
		// Anything escaping the cycle is downgraded to an error
		// transition; the loop must outlive broken cycles.
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.ObserveCycle(status, time.Since(start))
	}()

	logger.Info("starting scrape cycle")

	venues, err := s.venues.Load(ctx)
	if err != nil {
		return fmt.Errorf("load venues: %w", err)
	}

	events := s.scraper.ScrapeAll(ctx, venues)
	if ctx.Err() != nil {
		// Cancelled mid-pass: do not write partial artifacts.
		return ctx.Err()
	}
	if len(events) == 0 {
		logger.Warn("no events found during scrape cycle")
		return nil
	}

	// Artifact write failures are logged but do not fail the cycle.
	cal := s.builder.Build(events, s.cfg.CalendarTitle)
	if werr := s.writer.WriteCalendar(s.cfg.CalendarFileName, cal.Serialize()); werr != nil {
		logger.Error("calendar write failed", zap.Error(werr))
	}
	if werr := s.writer.WriteSnapshot(events); werr != nil {
		logger.Error("snapshot write failed", zap.Error(werr))
	}
	if werr := s.writer.WriteStats(events); werr != nil {
		logger.Error("statistics write failed", zap.Error(werr))
	}

	logger.Info("scrape cycle artifacts written",
		zap.Int("events", len(events)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// StaticVenues adapts a fixed venue list, typically bound from
// configuration, into a VenueSource.
func StaticVenues(venues []*venue.Descriptor) VenueSource {
	return staticVenues(venues)
}

type staticVenues []*venue.Descriptor

func (s staticVenues) Load(_ context.Context) ([]*venue.Descriptor, error) {
	return s, nil
}

// sleep waits for d or until ctx finishes.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
