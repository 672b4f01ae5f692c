// Package event defines the canonical event record produced by venue
// extractors, along with identity, deduplication, and ordering helpers.
package event

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Event is a normalized theater event, independent of how the source
// venue formats its listings. Events are created by an extractor during a
// scrape cycle and are immutable for the rest of that cycle; the next
// cycle's full re-scrape supersedes them.
type Event struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	VenueName    string     `json:"venueName"`
	VenueAddress string     `json:"venueAddress,omitempty"`
	Start        *time.Time `json:"startDateTime,omitempty"`
	End          *time.Time `json:"endDateTime,omitempty"`
	EventURL     string     `json:"eventUrl,omitempty"`
	TicketURL    string     `json:"ticketUrl,omitempty"`
	Price        *float64   `json:"price,omitempty"`
	PriceRange   string     `json:"priceRange,omitempty"`
	ImageURL     string     `json:"imageUrl,omitempty"`
	Categories   []string   `json:"categories"`
	Source       string     `json:"source"`
	LastUpdated  time.Time  `json:"lastUpdated"`
}

// GenerateID derives a deterministic identifier from the fields that make
// an event unique: title, venue name, and the start time truncated to the
// minute. Two showtimes of the same production get different IDs because
// the start time participates in the key.
func GenerateID(title, venueName string, start *time.Time) string {
	key := "undated"
	if start != nil {
		key = start.UTC().Truncate(time.Minute).Format("2006-01-02-15-04")
	}
	h := sha256.Sum256([]byte(title + "|" + venueName + "|" + key))
	return hex.EncodeToString(h[:])
}

// AddCategory appends a category tag, collapsing duplicates
// case-insensitively.
func (e *Event) AddCategory(category string) {
	category = strings.TrimSpace(category)
	if category == "" {
		return
	}
	for _, existing := range e.Categories {
		if strings.EqualFold(existing, category) {
			return
		}
	}
	e.Categories = append(e.Categories, category)
}

// Dated reports whether the event has a resolved start time.
func (e *Event) Dated() bool {
	return e.Start != nil
}

// Dedupe keeps the first occurrence per ID, preserving input order.
// Running it on an already-deduplicated slice is a no-op.
func Dedupe(events []Event) []Event {
	seen := make(map[string]struct{}, len(events))
	unique := make([]Event, 0, len(events))
	for _, evt := range events {
		if _, ok := seen[evt.ID]; ok {
			continue
		}
		seen[evt.ID] = struct{}{}
		unique = append(unique, evt)
	}
	return unique
}

// SortByStart orders events ascending by start time. Undated events sort
// after all dated ones so the dated prefix lines up with what the calendar
// serializer emits.
func SortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		switch {
		case a.Start == nil:
			return false
		case b.Start == nil:
			return true
		default:
			return a.Start.Before(*b.Start)
		}
	})
}
