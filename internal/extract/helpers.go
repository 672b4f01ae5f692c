package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mwhitten/stagehand/internal/event"
	"github.com/mwhitten/stagehand/internal/venue"
)

// defaultCategory seeds every produced event's tag set.
const defaultCategory = "Theater"

// firstText walks the selector cascade and returns the cleaned text of the
// first selector that yields a non-empty match.
func firstText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if found := sel.Find(s).First(); found.Length() > 0 {
			if text := CleanText(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// firstAttr returns the named attribute from the first selector that
// yields a match carrying it.
func firstAttr(sel *goquery.Selection, attr string, selectors ...string) string {
	for _, s := range selectors {
		if value, ok := sel.Find(s).First().Attr(attr); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// priceText finds the first descendant whose text mentions a dollar
// amount, preferring nodes with price-ish class names.
func priceText(sel *goquery.Selection) string {
	var text string
	sel.Find("[class*='price'], [class*='cost']").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if t := CleanText(node.Text()); strings.Contains(t, "$") {
			text = t
			return false
		}
		return true
	})
	if text != "" {
		return text
	}
	sel.Find("*").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if node.Children().Length() > 0 {
			return true
		}
		if t := CleanText(node.Text()); strings.Contains(t, "$") {
			text = t
			return false
		}
		return true
	})
	return text
}

// finalize applies the construction rules every strategy shares: venue
// identity, source stamp, default category, and the derived ID. It reports
// false when the event should be discarded for lacking a usable title.
func finalize(evt *event.Event, v venue.Descriptor, source string, now time.Time) bool {
	if strings.TrimSpace(evt.Title) == "" {
		return false
	}
	evt.VenueName = v.Name
	evt.VenueAddress = v.Address
	evt.Source = source
	evt.LastUpdated = now
	evt.AddCategory(defaultCategory)
	evt.ID = event.GenerateID(evt.Title, evt.VenueName, evt.Start)
	return true
}
