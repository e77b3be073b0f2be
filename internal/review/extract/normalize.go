package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/credflow/credflow-backend/internal/review/catalog"
)

// placeholders are label values that mean "nothing was entered". They are
// treated as not-found, never as a format defect.
var placeholders = map[string]bool{
	"n/a":     true,
	"na":      true,
	"-":       true,
	"--":      true,
	"none":    true,
	"null":    true,
	"pending": true,
}

var underlineOnly = regexp.MustCompile(`^[_\s.]+$`)

// isPlaceholder reports whether a captured value carries no real content
func isPlaceholder(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	if underlineOnly.MatchString(v) {
		return true
	}
	return placeholders[strings.ToLower(v)]
}

var nonDigits = regexp.MustCompile(`\D`)

// dateLayouts covers the date renderings seen in credentialing summaries.
// Four-digit-year forms come first so "01/02/2026" never parses as 2-digit.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Jan. 2, 2006",
	"01/02/06",
	"1/2/06",
}

// Normalize coerces a raw capture into the canonical representation for
// its kind: dates become YYYY-MM-DD, identifiers digits-only, states
// uppercase, emails lowercase. The second return reports whether the
// value changed beyond whitespace trimming, which lowers confidence but
// never changes a validation verdict.
func Normalize(raw string, kind catalog.FieldKind) (string, bool) {
	trimmed := strings.Join(strings.Fields(raw), " ")

	var normalized string
	switch kind {
	case catalog.KindSSN, catalog.KindNPI, catalog.KindTaxID, catalog.KindPhone, catalog.KindZip:
		normalized = normalizeIdentifier(trimmed, kind)
	case catalog.KindDate:
		normalized = normalizeDate(trimmed)
	case catalog.KindState:
		normalized = strings.ToUpper(trimmed)
	case catalog.KindEmail:
		normalized = strings.ToLower(trimmed)
	default:
		normalized = trimmed
	}

	return normalized, normalized != trimmed
}

func normalizeIdentifier(value string, kind catalog.FieldKind) string {
	switch kind {
	case catalog.KindZip:
		// Keep the plus-four suffix distinguishable
		if i := strings.Index(value, "-"); i > 0 {
			return nonDigits.ReplaceAllString(value[:i], "") + "-" + nonDigits.ReplaceAllString(value[i+1:], "")
		}
		return nonDigits.ReplaceAllString(value, "")
	default:
		return nonDigits.ReplaceAllString(value, "")
	}
}

func normalizeDate(value string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return value
}
