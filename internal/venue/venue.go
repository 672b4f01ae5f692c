// Package venue defines the descriptor for a scrape target. Descriptors
// are owned by configuration and read-only to the scraping core, except
// for the LastScraped stamp which the orchestrator updates once per cycle.
package venue

import "time"

// Descriptor identifies one theater venue and how to scrape it.
type Descriptor struct {
	Name        string            `json:"name" mapstructure:"name"`
	URL         string            `json:"url" mapstructure:"url"`
	Address     string            `json:"address" mapstructure:"address"`
	Extractor   string            `json:"extractor" mapstructure:"extractor"`
	Config      map[string]string `json:"config,omitempty" mapstructure:"config"`
	Active      bool              `json:"active" mapstructure:"active"`
	LastScraped time.Time         `json:"lastScraped,omitempty" mapstructure:"-"`
}
