// Package output writes the artifacts a scrape cycle produces: the
// calendar file, the full JSON snapshot, and aggregate statistics.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mwhitten/stagehand/internal/event"
)

// SnapshotFileName is the machine-readable event dump read back by the
// admin server.
const SnapshotFileName = "theater-events.json"

// StatsFileName holds the per-cycle aggregate statistics.
const StatsFileName = "scraping-statistics.json"

// Writer persists cycle artifacts under a single output directory.
type Writer struct {
	dir string
}

// NewWriter prepares the output directory.
func NewWriter(dir string) (*Writer, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: abs}, nil
}

// Dir returns the resolved output directory.
func (w *Writer) Dir() string { return w.dir }

// SnapshotPath returns the absolute path of the JSON snapshot.
func (w *Writer) SnapshotPath() string { return filepath.Join(w.dir, SnapshotFileName) }

// WriteCalendar stores the serialized calendar under name.
func (w *Writer) WriteCalendar(name, ics string) error {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(ics), 0o644); err != nil {
		return fmt.Errorf("write calendar %s: %w", path, err)
	}
	return nil
}

// WriteSnapshot stores the full event set as pretty-printed JSON.
func (w *Writer) WriteSnapshot(events []event.Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	path := w.SnapshotPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// Stats is the aggregate statistics document.
type Stats struct {
	TotalEvents   int          `json:"totalEvents"`
	VenueCount    int          `json:"venueCount"`
	DateRange     DateRange    `json:"dateRange"`
	EventsByVenue []VenueCount `json:"eventsByVenue"`
	EventsByMonth []MonthCount `json:"eventsByMonth"`
	Categories    []string     `json:"categories"`
	LastUpdated   time.Time    `json:"lastUpdated"`
}

// DateRange spans the earliest and latest dated events.
type DateRange struct {
	Earliest *time.Time `json:"earliest,omitempty"`
	Latest   *time.Time `json:"latest,omitempty"`
}

// VenueCount is one venue's event tally.
type VenueCount struct {
	Venue string `json:"venue"`
	Count int    `json:"count"`
}

// MonthCount is one month's event tally, keyed YYYY-MM.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// BuildStats computes the statistics document for one cycle's events.
func BuildStats(events []event.Event) Stats {
	stats := Stats{
		TotalEvents: len(events),
		LastUpdated: time.Now().UTC(),
	}

	venues := make(map[string]int)
	months := make(map[string]int)
	categories := make(map[string]struct{})
	for _, evt := range events {
		venues[evt.VenueName]++
		for _, cat := range evt.Categories {
			categories[cat] = struct{}{}
		}
		if !evt.Dated() {
			continue
		}
		start := *evt.Start
		months[start.Format("2006-01")]++
		if stats.DateRange.Earliest == nil || start.Before(*stats.DateRange.Earliest) {
			stats.DateRange.Earliest = &start
		}
		if stats.DateRange.Latest == nil || start.After(*stats.DateRange.Latest) {
			stats.DateRange.Latest = &start
		}
	}

	stats.VenueCount = len(venues)
	for name, count := range venues {
		stats.EventsByVenue = append(stats.EventsByVenue, VenueCount{Venue: name, Count: count})
	}
	sort.Slice(stats.EventsByVenue, func(i, j int) bool {
		a, b := stats.EventsByVenue[i], stats.EventsByVenue[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Venue < b.Venue
	})

	for month, count := range months {
		stats.EventsByMonth = append(stats.EventsByMonth, MonthCount{Month: month, Count: count})
	}
	sort.Slice(stats.EventsByMonth, func(i, j int) bool {
		return stats.EventsByMonth[i].Month < stats.EventsByMonth[j].Month
	})

	for cat := range categories {
		stats.Categories = append(stats.Categories, cat)
	}
	sort.Strings(stats.Categories)

	return stats
}

// WriteStats computes and stores the statistics document.
func (w *Writer) WriteStats(events []event.Event) error {
	data, err := json.MarshalIndent(BuildStats(events), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}
	path := filepath.Join(w.dir, StatsFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write statistics %s: %w", path, err)
	}
	return nil
}
