package extract

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/event"
	"github.com/mwhitten/stagehand/internal/venue"
)

// KauffmanExtractor reads the Kauffman Center's performance listings.
// One listing container maps to one event; the detail page fills in
// description, pricing, and imagery.
type KauffmanExtractor struct {
	loader Loader
	logger *zap.Logger
}

// NewKauffmanExtractor builds the Kauffman Center strategy.
func NewKauffmanExtractor(loader Loader, logger *zap.Logger) *KauffmanExtractor {
	return &KauffmanExtractor{loader: loader, logger: logger}
}

// Name identifies the strategy.
func (e *KauffmanExtractor) Name() string { return "Kauffman Center for the Performing Arts" }

// Matches accepts venues tagged "kauffman" or recognizable by domain or name.
func (e *KauffmanExtractor) Matches(v venue.Descriptor) bool {
	return v.Extractor == "kauffman" ||
		strings.Contains(v.URL, "kauffmancenter.org") ||
		strings.Contains(v.Name, "Kauffman")
}

// Extract produces one event per listing container.
func (e *KauffmanExtractor) Extract(ctx context.Context, v venue.Descriptor, doc *goquery.Document) []event.Event {
	now := time.Now().UTC()
	events := make([]event.Event, 0)

	doc.Find("div[class*='event-item'], li[class*='event-item']").Each(func(_ int, node *goquery.Selection) {
		title := firstText(node, "h2", "h3", "a[class*='title']")
		if title == "" {
			return
		}

		evt := event.Event{Title: title}
		if href := firstAttr(node, "href", "a[href]"); href != "" {
			evt.EventURL = ResolveURL(v.URL, href)
		}
		if dateText := firstText(node, "[class*='date']", "[class*='time']"); dateText != "" {
			if start, ok := ParseDateTime(dateText, ""); ok {
				evt.Start = &start
			}
		}

		enrichFromDetailPage(ctx, e.loader, e.logger, &evt, detailSelectors{
			description: []string{"[class*='description']", "[class*='summary']"},
			ticket:      []string{"a[href]"},
			image:       []string{"img[class*='event-image']", "img[alt*='event']"},
		})

		if finalize(&evt, v, e.Name(), now) {
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
