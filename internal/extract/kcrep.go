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

// KCRepExtractor reads Kansas City Repertory Theatre's season pages.
// Productions there list several showtimes under one container, so one
// container fans out into one event per showtime, each with its own
// start time and therefore its own identifier.
type KCRepExtractor struct {
	loader Loader
	logger *zap.Logger
}

// NewKCRepExtractor builds the KC Rep strategy.
func NewKCRepExtractor(loader Loader, logger *zap.Logger) *KCRepExtractor {
	return &KCRepExtractor{loader: loader, logger: logger}
}

// Name identifies the strategy.
func (e *KCRepExtractor) Name() string { return "Kansas City Repertory Theatre" }

// Matches accepts venues tagged "kcrep" or recognizable by domain or name.
func (e *KCRepExtractor) Matches(v venue.Descriptor) bool {
	return v.Extractor == "kcrep" ||
		strings.Contains(v.URL, "kcrep.org") ||
		strings.Contains(v.Name, "KC Rep") ||
		strings.Contains(v.Name, "Kansas City Repertory")
}

var kcrepDetail = detailSelectors{
	description: []string{"[class*='description']", "[class*='synopsis']", "p[class*='summary']"},
	ticket:      []string{"a[href]"},
	image:       []string{"img[class*='show-image']", "img[class*='production']"},
}

// Extract emits one event per showtime node inside each production
// container; a production with no parseable showtimes still yields a
// single undated event.
func (e *KCRepExtractor) Extract(ctx context.Context, v venue.Descriptor, doc *goquery.Document) []event.Event {
	now := time.Now().UTC()
	events := make([]event.Event, 0)

	doc.Find("div[class*='show'], div[class*='production']").Each(func(_ int, node *goquery.Selection) {
		title := firstText(node, "h1", "h2", "h3", "a[class*='title']")
		if title == "" {
			return
		}

		eventURL := ""
		if href := firstAttr(node, "href", "a[href]"); href != "" {
			eventURL = ResolveURL(v.URL, href)
		}

		var starts []time.Time
		node.Find("[class*='date'], [class*='showtime']").Each(func(_ int, dateNode *goquery.Selection) {
			if start, ok := ParseDateTime(CleanText(dateNode.Text()), ""); ok {
				starts = append(starts, start)
			}
		})

		if len(starts) == 0 {
			evt := event.Event{Title: title, EventURL: eventURL}
			enrichFromDetailPage(ctx, e.loader, e.logger, &evt, kcrepDetail)
			if finalize(&evt, v, e.Name(), now) {
				events = append(events, evt)
			}
			return
		}

		for i := range starts {
			start := starts[i]
			evt := event.Event{Title: title, EventURL: eventURL, Start: &start}
			enrichFromDetailPage(ctx, e.loader, e.logger, &evt, kcrepDetail)
			if finalize(&evt, v, e.Name(), now) {
				events = append(events, evt)
			}
		}
	})

	e.logger.Info("extraction complete",
		zap.String("venue", v.Name),
		zap.String("extractor", e.Name()),
		zap.Int("events", len(events)),
	)
	return events
}
