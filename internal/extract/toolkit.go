package extract

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	priceRun      = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	meridiemRun   = regexp.MustCompile(`(?i)\b(a\.?m\.?|p\.?m\.?)\b`)
)

// CleanText decodes HTML entities and collapses all whitespace runs
// (including newlines and tabs) into single spaces.
func CleanText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	text := html.UnescapeString(raw)
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// dateTimeLayouts is tried in order; explicit layouts first, then the
// looser fallbacks. Go's reference-time parsing accepts unpadded day and
// month values for the "1"/"2" verbs, so each layout covers both forms.
var dateTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 15:04",
	"January 2, 2006 3:04 PM",
	"2 Jan 2006 15:04",
	"2 Jan 2006 3:04 PM",
	"2006-01-02",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"Monday, January 2, 2006 3:04 PM",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006 3:04 PM",
	"Mon, Jan 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	time.RFC1123,
}

// ParseDateTime parses a date fragment, optionally joined with a separate
// time fragment, against a cascade of known layouts. It reports false when
// nothing matches; it never panics on garbage input.
func ParseDateTime(dateText, timeText string) (time.Time, bool) {
	dateText = normalizeDateTime(dateText)
	if dateText == "" {
		return time.Time{}, false
	}
	if timeText = normalizeDateTime(timeText); timeText != "" {
		dateText = dateText + " " + timeText
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, dateText); err == nil {
			return t, true
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, dateText); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeDateTime cleans a fragment and uppercases AM/PM markers so the
// reference-time layouts match case-insensitively.
func normalizeDateTime(text string) string {
	text = CleanText(text)
	return meridiemRun.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ToUpper(strings.ReplaceAll(m, ".", ""))
	})
}

// ParsePrice extracts the first numeric run from a price string, ignoring
// thousands separators. "Tickets from $45.50 - $120" yields 45.50.
func ParsePrice(text string) (float64, bool) {
	match := priceRun.FindString(text)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ResolveURL resolves ref against base. Already-absolute refs pass through
// untouched, and any resolution failure returns ref unchanged rather than
// an error.
func ResolveURL(base, ref string) string {
	if strings.TrimSpace(ref) == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
