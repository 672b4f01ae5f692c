package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/event"
)

// detailSelectors configures the secondary fetch of an event's own page.
// Each field is a cascade tried in order.
type detailSelectors struct {
	description []string
	ticket      []string
	image       []string
}

// enrichFromDetailPage fetches the event's detail page and fills in
// description, ticket URL, price, and image. Failures are logged and
// swallowed: enrichment never sinks the extraction that requested it.
func enrichFromDetailPage(ctx context.Context, loader Loader, logger *zap.Logger, evt *event.Event, sel detailSelectors) {
	if loader == nil || evt.EventURL == "" {
		return
	}
	doc, err := loader.Load(ctx, evt.EventURL)
	if err != nil {
		logger.Warn("detail page enrichment failed",
			zap.String("title", evt.Title),
			zap.String("url", evt.EventURL),
			zap.Error(err),
		)
		return
	}
	root := doc.Selection

	if evt.Description == "" {
		evt.Description = firstText(root, sel.description...)
	}

	if evt.TicketURL == "" {
		for _, s := range sel.ticket {
			node := root.Find(s).FilterFunction(func(_ int, n *goquery.Selection) bool {
				href, _ := n.Attr("href")
				return strings.Contains(strings.ToLower(href), "ticket") ||
					strings.Contains(strings.ToLower(n.Text()), "buy tickets")
			}).First()
			if href, ok := node.Attr("href"); ok {
				evt.TicketURL = ResolveURL(evt.EventURL, href)
				break
			}
		}
	}

	if evt.PriceRange == "" {
		if text := priceText(root); text != "" {
			evt.PriceRange = text
			if price, ok := ParsePrice(text); ok {
				evt.Price = &price
			}
		}
	}

	if evt.ImageURL == "" {
		if src := firstAttr(root, "src", sel.image...); src != "" {
			evt.ImageURL = ResolveURL(evt.EventURL, src)
		}
	}
}
