package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitten/stagehand/internal/event"
)

func sampleEvents() []event.Event {
	mar := time.Date(2025, time.March, 3, 19, 30, 0, 0, time.UTC)
	apr1 := time.Date(2025, time.April, 12, 20, 0, 0, 0, time.UTC)
	apr2 := time.Date(2025, time.April, 26, 14, 0, 0, 0, time.UTC)
	return []event.Event{
		{
			ID:         event.GenerateID("Hamlet", "KC Rep", &mar),
			Title:      "Hamlet",
			VenueName:  "KC Rep",
			Start:      &mar,
			Categories: []string{"Theater"},
			Source:     "kcrep.org",
		},
		{
			ID:         event.GenerateID("Swan Lake", "Kauffman Center", &apr1),
			Title:      "Swan Lake",
			VenueName:  "Kauffman Center",
			Start:      &apr1,
			Categories: []string{"Dance", "Theater"},
			Source:     "kauffmancenter.org",
		},
		{
			ID:         event.GenerateID("Giselle", "Kauffman Center", &apr2),
			Title:      "Giselle",
			VenueName:  "Kauffman Center",
			Start:      &apr2,
			Categories: []string{"Dance"},
			Source:     "kauffmancenter.org",
		},
		{
			ID:        event.GenerateID("Season Reveal", "KC Rep", nil),
			Title:     "Season Reveal",
			VenueName: "KC Rep",
			Source:    "kcrep.org",
		},
	}
}

func TestWriteSnapshot(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.WriteSnapshot(sampleEvents()))

	data, err := os.ReadFile(w.SnapshotPath())
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 4)
	assert.Equal(t, "Hamlet", decoded[0]["title"])
	assert.Equal(t, "KC Rep", decoded[0]["venueName"])
	assert.Contains(t, decoded[0], "startDateTime")

	// Pretty output, for diffable artifacts.
	assert.Contains(t, string(data), "\n  ")
}

func TestWriteCalendar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteCalendar("theater-events.ics", "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))

	data, err := os.ReadFile(filepath.Join(dir, "theater-events.ics"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCALENDAR")
}

func TestBuildStats(t *testing.T) {
	t.Parallel()

	stats := BuildStats(sampleEvents())

	assert.Equal(t, 4, stats.TotalEvents)
	assert.Equal(t, 2, stats.VenueCount)

	require.NotNil(t, stats.DateRange.Earliest)
	require.NotNil(t, stats.DateRange.Latest)
	assert.Equal(t, time.March, stats.DateRange.Earliest.Month())
	assert.Equal(t, 26, stats.DateRange.Latest.Day())

	// Equal tallies fall back to name order.
	require.Len(t, stats.EventsByVenue, 2)
	assert.Equal(t, VenueCount{Venue: "KC Rep", Count: 2}, stats.EventsByVenue[0])
	assert.Equal(t, VenueCount{Venue: "Kauffman Center", Count: 2}, stats.EventsByVenue[1])

	// Months ascending; the undated event counts toward no month.
	require.Len(t, stats.EventsByMonth, 2)
	assert.Equal(t, MonthCount{Month: "2025-03", Count: 1}, stats.EventsByMonth[0])
	assert.Equal(t, MonthCount{Month: "2025-04", Count: 2}, stats.EventsByMonth[1])

	assert.Equal(t, []string{"Dance", "Theater"}, stats.Categories)
	assert.False(t, stats.LastUpdated.IsZero())
}

func TestBuildStatsEmpty(t *testing.T) {
	t.Parallel()

	stats := BuildStats(nil)
	assert.Zero(t, stats.TotalEvents)
	assert.Zero(t, stats.VenueCount)
	assert.Nil(t, stats.DateRange.Earliest)
	assert.Nil(t, stats.DateRange.Latest)
}

func TestWriteStats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteStats(sampleEvents()))

	data, err := os.ReadFile(filepath.Join(dir, StatsFileName))
	require.NoError(t, err)

	var stats Stats
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, 4, stats.TotalEvents)
	assert.Equal(t, 2, stats.VenueCount)
}
