package extract

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/event"
	"github.com/mwhitten/stagehand/internal/venue"
)

// GenericExtractor is the fallback strategy for venues without a
// site-specific scraper. It probes a cascade of common structural and
// schema.org selectors and keeps whatever yields a plausible listing.
type GenericExtractor struct {
	logger *zap.Logger
}

// NewGenericExtractor builds the fallback strategy.
func NewGenericExtractor(logger *zap.Logger) *GenericExtractor {
	return &GenericExtractor{logger: logger}
}

// Name identifies the strategy.
func (e *GenericExtractor) Name() string { return "Generic Theater Scraper" }

// Matches accepts any venue tagged "generic" or carrying no tag at all.
func (e *GenericExtractor) Matches(v venue.Descriptor) bool {
	return v.Extractor == "generic" || v.Extractor == ""
}

// containerSelectors is tried in order; the first selector that matches
// any nodes wins for the whole page.
var containerSelectors = []string{
	"div[class*='event']",
	"div[class*='show']",
	"div[class*='performance']",
	"div[class*='production']",
	"article[class*='event']",
	"li[class*='event']",
	"[itemtype='http://schema.org/Event']",
	"div[class*='calendar-event']",
}

var titleSelectors = []string{
	"h1", "h2", "h3", "h4",
	"[class*='title']",
	"[class*='name']",
	"[itemprop='name']",
	"a:not([class*='btn'])",
}

var dateSelectors = []string{
	"[class*='date']",
	"[class*='time']",
	"[class*='when']",
	"[itemprop='startDate']",
	"[datetime]",
}

var descriptionSelectors = []string{
	"[class*='description']",
	"[class*='summary']",
	"[itemprop='description']",
	"p:not([class*='date']):not([class*='time'])",
}

// Extract probes the container cascade and builds one event per usable
// container. Containers whose cleaned title is three characters or
// shorter are discarded as navigation noise.
func (e *GenericExtractor) Extract(_ context.Context, v venue.Descriptor, doc *goquery.Document) []event.Event {
	now := time.Now().UTC()
	events := make([]event.Event, 0)

	var containers *goquery.Selection
	for _, selector := range containerSelectors {
		if found := doc.Find(selector); found.Length() > 0 {
			e.logger.Debug("generic containers matched",
				zap.String("venue", v.Name),
				zap.String("selector", selector),
				zap.Int("count", found.Length()),
			)
			containers = found
			break
		}
	}
	if containers == nil {
		e.logger.Warn("no event containers matched", zap.String("venue", v.Name))
		return events
	}

	containers.Each(func(_ int, node *goquery.Selection) {
		if evt, ok := e.extractOne(node, v, now); ok {
			events = append(events, evt)
		}
	})

	e.logger.Info("extraction complete",
		zap.String("venue", v.Name),
		zap.String("extractor", e.Name()),
		zap.Int("events", len(events)),
	)
	return events
}

func (e *GenericExtractor) extractOne(node *goquery.Selection, v venue.Descriptor, now time.Time) (event.Event, bool) {
	var title string
	for _, selector := range titleSelectors {
		if text := firstText(node, selector); len(text) > 3 {
			title = text
			break
		}
	}
	if title == "" {
		return event.Event{}, false
	}

	evt := event.Event{Title: title}

	for _, selector := range dateSelectors {
		dateNode := node.Find(selector).First()
		if dateNode.Length() == 0 {
			continue
		}
		if start, ok := ParseDateTime(CleanText(dateNode.Text()), ""); ok {
			evt.Start = &start
			break
		}
		// Fall back to the machine-readable attribute.
		if attr, ok := dateNode.Attr("datetime"); ok {
			if start, parsed := ParseDateTime(attr, ""); parsed {
				evt.Start = &start
				break
			}
		}
	}

	if href := firstAttr(node, "href", "a[href]"); href != "" {
		evt.EventURL = ResolveURL(v.URL, href)
	}

	for _, selector := range descriptionSelectors {
		if text := firstText(node, selector); len(text) > 10 {
			evt.Description = text
			break
		}
	}

	if text := priceText(node); text != "" {
		evt.PriceRange = text
		if price, ok := ParsePrice(text); ok {
			evt.Price = &price
		}
	}

	if src := firstAttr(node, "src", "img[src]"); src != "" {
		evt.ImageURL = ResolveURL(v.URL, src)
	}

	if !finalize(&evt, v, e.Name(), now) {
		return event.Event{}, false
	}
	return evt, true
}
