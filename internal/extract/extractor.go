// Package extract turns raw venue markup into canonical events. It holds
// the shared normalization toolkit, the per-venue extraction strategies,
// and the registry that matches a strategy to a venue.
package extract

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/event"
	"github.com/mwhitten/stagehand/internal/venue"
)

// Loader fetches a secondary page, typically an event's own detail page
// used to enrich description, ticket URL, price, and image.
type Loader interface {
	Load(ctx context.Context, url string) (*goquery.Document, error)
}

// Extractor is one strategy for reading a venue's listings page.
type Extractor interface {
	// Name identifies the strategy in logs and on produced events.
	Name() string
	// Matches reports whether this strategy can handle the venue.
	Matches(v venue.Descriptor) bool
	// Extract produces zero or more canonical events from the document.
	Extract(ctx context.Context, v venue.Descriptor, doc *goquery.Document) []event.Event
}

// Registry holds the ordered strategy set. Site-specific strategies come
// before the generic fallback so the first match wins.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds the default strategy set.
func NewRegistry(loader Loader, logger *zap.Logger) *Registry {
	return &Registry{
		extractors: []Extractor{
			NewKauffmanExtractor(loader, logger),
			NewKCRepExtractor(loader, logger),
			NewGenericExtractor(logger),
		},
	}
}

// NewRegistryWith builds a registry over an explicit strategy list,
// preserving order.
func NewRegistryWith(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Find returns the first extractor that matches the venue, or nil when
// none does.
func (r *Registry) Find(v venue.Descriptor) Extractor {
	for _, ex := range r.extractors {
		if ex.Matches(v) {
			return ex
		}
	}
	return nil
}
