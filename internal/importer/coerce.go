package importer

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/propledger/internal/transaction"
)

// dateLayouts are tried in order before falling back to dateparse.
// Layouts without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC1123Z,
	time.RFC1123,
}

var notAmountChars = regexp.MustCompile(`[^0-9.\-]+`)

// CleanString returns the trimmed text of v, or nil when nothing is left.
func CleanString(v any) *string {
	var s string

	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s = val
	case time.Time:
		s = formatISO(val)
	default:
		s = fmt.Sprint(val)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	return &s
}

// ParseAmount keeps only digits, '.' and '-' and parses what remains.
// It reports false for empty input, unparseable remainders and non-finite results.
func ParseAmount(v any) (float64, bool) {
	s := CleanString(v)
	if s == nil {
		return 0, false
	}

	stripped := notAmountChars.ReplaceAllString(*s, "")
	if stripped == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(stripped)
	if err != nil {
		return 0, false
	}

	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}

	return f, true
}

// ParseDate returns v as an ISO-8601 UTC timestamp, or nil when it is not a recognisable date.
func ParseDate(v any) *string {
	if t, ok := v.(time.Time); ok {
		s := formatISO(t)
		return &s
	}

	s := CleanString(v)
	if s == nil {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			out := formatISO(t)
			return &out
		}
	}

	t, err := dateparse.ParseIn(*s, time.UTC)
	if err != nil {
		return nil
	}

	out := formatISO(t)

	return &out
}

// ParseType matches v case-insensitively against income and expense.
func ParseType(v any) (transaction.Type, bool) {
	s := CleanString(v)
	if s == nil {
		return "", false
	}

	return transaction.ParseType(*s)
}
