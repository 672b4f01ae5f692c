// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	venuesScrapedTotal   *prometheus.CounterVec
	eventsExtractedTotal *prometheus.CounterVec
	fetchRetriesTotal    *prometheus.CounterVec
	cyclesTotal          *prometheus.CounterVec
	cycleDurationSeconds prometheus.Histogram
	lastCycleTimestamp   prometheus.Gauge
	inFlightFetches      prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		venuesScrapedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagehand_venues_scraped_total",
				Help: "Venues scraped, labeled by venue and outcome.",
			},
			[]string{"venue", "status"},
		)

		eventsExtractedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagehand_events_extracted_total",
				Help: "Events extracted, labeled by venue.",
			},
			[]string{"venue"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagehand_fetch_retries_total",
				Help: "Fetch attempts beyond the first, labeled by venue.",
			},
			[]string{"venue"},
		)

		cyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagehand_cycles_total",
				Help: "Scrape cycles run, labeled by outcome.",
			},
			[]string{"status"},
		)

		cycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stagehand_cycle_duration_seconds",
				Help:    "Wall-clock duration of a full scrape cycle.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		lastCycleTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "stagehand_last_cycle_timestamp_seconds",
				Help: "Unix time of the most recently completed cycle.",
			},
		)

		inFlightFetches = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "stagehand_in_flight_fetches",
				Help: "Venue fetches currently in flight.",
			},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveVenue records one venue's scrape outcome and event yield.
func ObserveVenue(venue, status string, events int) {
	venuesScrapedTotal.WithLabelValues(venue, status).Inc()
	if events > 0 {
		eventsExtractedTotal.WithLabelValues(venue).Add(float64(events))
	}
}

// ObserveRetry counts a retried fetch attempt.
func ObserveRetry(venue string) {
	fetchRetriesTotal.WithLabelValues(venue).Inc()
}

// ObserveCycle records a completed cycle.
func ObserveCycle(status string, duration time.Duration) {
	cyclesTotal.WithLabelValues(status).Inc()
	cycleDurationSeconds.Observe(duration.Seconds())
	lastCycleTimestamp.SetToCurrentTime()
}

// IncInFlight increments the in-flight fetch gauge.
func IncInFlight() {
	inFlightFetches.Inc()
}

// DecInFlight decrements the in-flight fetch gauge.
func DecInFlight() {
	inFlightFetches.Dec()
}
