package scrape

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/event"
	"github.com/mwhitten/stagehand/internal/extract"
	"github.com/mwhitten/stagehand/internal/venue"
)

type fakeFetcher struct {
	mu          sync.Mutex
	delay       time.Duration
	fail        map[string]error
	attempts    map[string]int
	inFlight    int
	maxInFlight int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		fail:     make(map[string]error),
		attempts: make(map[string]int),
	}
}

func (f *fakeFetcher) Load(_ context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.attempts[url]++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.fail[url]; err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader("<html></html>"))
}

// stubExtractor returns canned events per venue name.
type stubExtractor struct {
	events map[string][]event.Event
	panics map[string]bool
}

func (s *stubExtractor) Name() string { return "stub" }

func (s *stubExtractor) Matches(_ venue.Descriptor) bool { return true }

func (s *stubExtractor) Extract(_ context.Context, v venue.Descriptor, _ *goquery.Document) []event.Event {
	if s.panics[v.Name] {
		panic("selector blew up")
	}
	return s.events[v.Name]
}

func datedEvent(title, venueName string, start time.Time) event.Event {
	return event.Event{
		ID:        event.GenerateID(title, venueName, &start),
		Title:     title,
		VenueName: venueName,
		Start:     &start,
	}
}

func activeVenue(name string) *venue.Descriptor {
	return &venue.Descriptor{Name: name, URL: "https://" + name + ".example.org", Active: true}
}

func TestScrapeAllFaultIsolation(t *testing.T) {
	t.Parallel()

	a, b, c := activeVenue("a"), activeVenue("b"), activeVenue("c")
	base := time.Date(2025, time.April, 1, 19, 0, 0, 0, time.UTC)

	fetcher := newFakeFetcher()
	fetcher.fail[a.URL] = errors.New("connection timed out")

	stub := &stubExtractor{events: map[string][]event.Event{
		"b": {
			datedEvent("B One", "b", base),
			datedEvent("B Two", "b", base.Add(time.Hour)),
		},
		"c": {
			datedEvent("C One", "c", base.Add(2*time.Hour)),
			datedEvent("C Two", "c", base.Add(3*time.Hour)),
			datedEvent("C Three", "c", base.Add(4*time.Hour)),
		},
	}}

	o := New(fetcher, extract.NewRegistryWith(stub), Options{Concurrency: 3, RetryAttempts: 2}, zap.NewNop())
	events := o.ScrapeAll(context.Background(), []*venue.Descriptor{a, b, c})

	require.Len(t, events, 5)
	for _, evt := range events {
		assert.NotEqual(t, "a", evt.VenueName)
	}

	// The failing venue was retried the configured number of times.
	assert.Equal(t, 2, fetcher.attempts[a.URL])

	// LastScraped advances for every venue, including the broken one.
	for _, v := range []*venue.Descriptor{a, b, c} {
		assert.False(t, v.LastScraped.IsZero(), "venue %s", v.Name)
	}
}

func TestScrapeAllDeduplicatesAcrossVenues(t *testing.T) {
	t.Parallel()

	a, b := activeVenue("a"), activeVenue("b")
	start := time.Date(2025, time.May, 10, 20, 0, 0, 0, time.UTC)
	shared := datedEvent("Touring Production", "Music Hall", start)

	stub := &stubExtractor{events: map[string][]event.Event{
		"a": {shared},
		"b": {shared},
	}}

	o := New(newFakeFetcher(), extract.NewRegistryWith(stub), Options{Concurrency: 2, RetryAttempts: 1}, zap.NewNop())
	events := o.ScrapeAll(context.Background(), []*venue.Descriptor{a, b})
	assert.Len(t, events, 1)
}

func TestScrapeAllOrdering(t *testing.T) {
	t.Parallel()

	v := activeVenue("a")
	jan := time.Date(2025, time.January, 5, 19, 0, 0, 0, time.UTC)
	jun := time.Date(2025, time.June, 5, 19, 0, 0, 0, time.UTC)
	undated := event.Event{ID: event.GenerateID("Undated", "a", nil), Title: "Undated", VenueName: "a"}

	stub := &stubExtractor{events: map[string][]event.Event{
		"a": {datedEvent("June", "a", jun), undated, datedEvent("January", "a", jan)},
	}}

	o := New(newFakeFetcher(), extract.NewRegistryWith(stub), Options{Concurrency: 1, RetryAttempts: 1}, zap.NewNop())
	events := o.ScrapeAll(context.Background(), []*venue.Descriptor{v})

	require.Len(t, events, 3)
	assert.Equal(t, "January", events[0].Title)
	assert.Equal(t, "June", events[1].Title)
	assert.Equal(t, "Undated", events[2].Title)
}

func TestScrapeAllConcurrencyCap(t *testing.T) {
	t.Parallel()

	const fetchDuration = 60 * time.Millisecond
	fetcher := newFakeFetcher()
	fetcher.delay = fetchDuration

	venues := []*venue.Descriptor{
		activeVenue("v1"), activeVenue("v2"), activeVenue("v3"),
		activeVenue("v4"), activeVenue("v5"),
	}
	stub := &stubExtractor{}

	o := New(fetcher, extract.NewRegistryWith(stub), Options{Concurrency: 2, RetryAttempts: 1}, zap.NewNop())

	startAt := time.Now()
	o.ScrapeAll(context.Background(), venues)
	elapsed := time.Since(startAt)

	// ceil(5/2) sequential batches at minimum.
	assert.GreaterOrEqual(t, elapsed, 3*fetchDuration)
	assert.LessOrEqual(t, fetcher.maxInFlight, 2, "the cap is a hard admission limit")
}

func TestScrapeAllSkipsInactiveVenues(t *testing.T) {
	t.Parallel()

	active := activeVenue("a")
	inactive := &venue.Descriptor{Name: "b", URL: "https://b.example.org", Active: false}

	fetcher := newFakeFetcher()
	stub := &stubExtractor{events: map[string][]event.Event{
		"a": {datedEvent("Show", "a", time.Now().UTC())},
		"b": {datedEvent("Hidden", "b", time.Now().UTC())},
	}}

	o := New(fetcher, extract.NewRegistryWith(stub), Options{Concurrency: 2, RetryAttempts: 1}, zap.NewNop())
	events := o.ScrapeAll(context.Background(), []*venue.Descriptor{active, inactive})

	require.Len(t, events, 1)
	assert.Equal(t, "Show", events[0].Title)
	assert.Zero(t, fetcher.attempts[inactive.URL])
	assert.True(t, inactive.LastScraped.IsZero())
}

func TestScrapeAllContainsExtractorPanic(t *testing.T) {
	t.Parallel()

	a, b := activeVenue("a"), activeVenue("b")
	stub := &stubExtractor{
		events: map[string][]event.Event{
			"b": {datedEvent("Survivor", "b", time.Now().UTC())},
		},
		panics: map[string]bool{"a": true},
	}

	o := New(newFakeFetcher(), extract.NewRegistryWith(stub), Options{Concurrency: 2, RetryAttempts: 1}, zap.NewNop())
	events := o.ScrapeAll(context.Background(), []*venue.Descriptor{a, b})

	require.Len(t, events, 1)
	assert.Equal(t, "Survivor", events[0].Title)
}

type neverMatches struct{}

func (neverMatches) Name() string                     { return "never" }
func (neverMatches) Matches(_ venue.Descriptor) bool  { return false }
func (neverMatches) Extract(_ context.Context, _ venue.Descriptor, _ *goquery.Document) []event.Event {
	return nil
}

func TestCheckVenueReportsEventCount(t *testing.T) {
	t.Parallel()

	v := activeVenue("a")
	base := time.Date(2025, time.October, 2, 19, 30, 0, 0, time.UTC)
	stub := &stubExtractor{events: map[string][]event.Event{
		"a": {
			datedEvent("First", "a", base),
			datedEvent("Second", "a", base.Add(time.Hour)),
		},
	}}

	fetcher := newFakeFetcher()
	o := New(fetcher, extract.NewRegistryWith(stub), Options{Concurrency: 1, RetryAttempts: 3, Delay: time.Minute}, zap.NewNop())

	count, err := o.CheckVenue(context.Background(), *v)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A check is a single undelayed fetch, ignoring the retry budget.
	assert.Equal(t, 1, fetcher.attempts[v.URL])
}

func TestCheckVenueFetchFailure(t *testing.T) {
	t.Parallel()

	v := activeVenue("a")
	fetcher := newFakeFetcher()
	fetcher.fail[v.URL] = errors.New("connection refused")

	o := New(fetcher, extract.NewRegistryWith(&stubExtractor{}), Options{Concurrency: 1, RetryAttempts: 1}, zap.NewNop())

	_, err := o.CheckVenue(context.Background(), *v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), v.URL)
}

func TestCheckVenueNoExtractor(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	o := New(fetcher, extract.NewRegistryWith(neverMatches{}), Options{Concurrency: 1, RetryAttempts: 1}, zap.NewNop())

	_, err := o.CheckVenue(context.Background(), *activeVenue("mystery"))
	require.Error(t, err)
	assert.Zero(t, fetcher.attempts["https://mystery.example.org"])
}

func TestScrapeAllNoExtractorMatch(t *testing.T) {
	t.Parallel()

	v := activeVenue("mystery")
	fetcher := newFakeFetcher()

	o := New(fetcher, extract.NewRegistryWith(neverMatches{}), Options{Concurrency: 1, RetryAttempts: 1}, zap.NewNop())
	events := o.ScrapeAll(context.Background(), []*venue.Descriptor{v})

	assert.Empty(t, events)
	assert.Zero(t, fetcher.attempts[v.URL], "no fetch without a matching extractor")
	assert.False(t, v.LastScraped.IsZero())
}
