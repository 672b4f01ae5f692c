// Package calendar maps canonical events into an iCalendar document and
// serializes it to RFC 5545 text.
package calendar

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/event"
)

const (
	prodID          = "-//stagehand//Theater Event Harvester//EN"
	calendarDesc    = "Theater events in the Kansas City metro area"
	defaultDuration = 2 * time.Hour
)

// Component is one bookable entry in the output calendar.
type Component struct {
	UID         string
	Summary     string
	Location    string
	Start       time.Time
	End         time.Time
	Description string
	Categories  []string
	URL         string
}

// Calendar is the built document, ready to serialize.
type Calendar struct {
	Name       string
	Components []Component
}

// Builder converts events into calendar documents.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder returns a Builder.
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build maps each dated event into a calendar component. Events without a
// start time are skipped; a single event failing to map is dropped without
// aborting the document.
func (b *Builder) Build(events []event.Event, title string) Calendar {
	cal := Calendar{Name: title}
	for _, evt := range events {
		if !evt.Dated() {
			b.logger.Debug("skipping undated event", zap.String("title", evt.Title))
			continue
		}
		component, err := buildComponent(evt)
		if err != nil {
			b.logger.Warn("could not build calendar component",
				zap.String("title", evt.Title),
				zap.Error(err),
			)
			continue
		}
		cal.Components = append(cal.Components, component)
	}
	b.logger.Info("calendar built",
		zap.Int("events", len(events)),
		zap.Int("components", len(cal.Components)),
	)
	return cal
}

func buildComponent(evt event.Event) (Component, error) {
	if evt.ID == "" {
		return Component{}, fmt.Errorf("event %q has no identifier", evt.Title)
	}

	c := Component{
		UID:        evt.ID,
		Summary:    evt.Title,
		Start:      *evt.Start,
		Categories: evt.Categories,
	}

	if evt.End != nil {
		c.End = *evt.End
	} else {
		c.End = evt.Start.Add(defaultDuration)
	}

	c.Location = evt.VenueName
	if evt.VenueAddress != "" {
		c.Location = evt.VenueName + ", " + evt.VenueAddress
	}

	var lines []string
	if evt.Description != "" {
		lines = append(lines, evt.Description, "")
	}
	if evt.PriceRange != "" {
		lines = append(lines, "Price: "+evt.PriceRange)
	}
	if evt.EventURL != "" {
		lines = append(lines, "More info: "+evt.EventURL)
	}
	if evt.TicketURL != "" {
		lines = append(lines, "Tickets: "+evt.TicketURL)
	}
	lines = append(lines, "Source: "+evt.Source)
	c.Description = strings.Join(lines, "\n")

	// The URL property only carries syntactically valid absolute URIs.
	if evt.EventURL != "" {
		if u, err := url.Parse(evt.EventURL); err == nil && u.IsAbs() {
			c.URL = evt.EventURL
		}
	}
	return c, nil
}

// Serialize renders the calendar as RFC 5545 text with CRLF line endings,
// escaped property values, and 75-octet line folding.
func (c Calendar) Serialize() string {
	var ics strings.Builder

	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:"+prodID)
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")
	writeLine(&ics, "X-WR-CALNAME:"+escapeText(c.Name))
	writeLine(&ics, "X-WR-CALDESC:"+escapeText(calendarDesc))

	now := time.Now().UTC()
	for _, component := range c.Components {
		writeLine(&ics, "BEGIN:VEVENT")
		writeLine(&ics, "UID:"+component.UID)
		writeLine(&ics, "DTSTAMP:"+formatTime(now))
		writeLine(&ics, "DTSTART:"+formatTime(component.Start))
		writeLine(&ics, "DTEND:"+formatTime(component.End))
		writeLine(&ics, "SUMMARY:"+escapeText(component.Summary))
		if component.Location != "" {
			writeLine(&ics, "LOCATION:"+escapeText(component.Location))
		}
		if component.Description != "" {
			writeLine(&ics, "DESCRIPTION:"+escapeText(component.Description))
		}
		if len(component.Categories) > 0 {
			escaped := make([]string, len(component.Categories))
			for i, cat := range component.Categories {
				escaped[i] = escapeText(cat)
			}
			writeLine(&ics, "CATEGORIES:"+strings.Join(escaped, ","))
		}
		if component.URL != "" {
			writeLine(&ics, "URL:"+component.URL)
		}
		writeLine(&ics, "END:VEVENT")
	}

	writeLine(&ics, "END:VCALENDAR")
	return ics.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeText escapes property text per RFC 5545 section 3.3.11.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// writeLine folds content lines longer than 75 octets with a CRLF plus
// single-space continuation. The fold point backs off to the nearest rune
// boundary so a multi-octet character is never split across lines.
func writeLine(b *strings.Builder, line string) {
	const limit = 75
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}
