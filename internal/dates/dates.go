// Package dates normalizes free-form deadline strings into ISO 8601.
//
// Date strings arrive from two unreliable sources: language-model output
// and raw requisition text. Both produce a wide mix of conventions
// ("15-03-2026", "March 15, 2026", "2026-03-15T10:00:00Z"), so the
// normalizer tries an ordered list of layouts and reports failure as a
// null value rather than an error.
package dates

import (
	"math"
	"strings"
	"time"
)

// isoLayouts are the forms accepted as already-normalized ISO 8601.
// Input matching one of these passes through unchanged. Fractional
// seconds are accepted implicitly by the time package during parsing.
var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

// fallbackLayouts are tried in order when the input is not ISO 8601.
// Order decides ambiguous numeric dates: dashed forms resolve day-first
// ("04-05-2026" is May 4) while slashed forms resolve month-first
// ("04/05/2026" is April 5).
var fallbackLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"1/2/2006",
	"2/1/2006",
	"January 2, 2006",
	"2 January 2006",
	"2006-1-2T15:4:5",
}

// nullSentinels are literal strings a model emits when it means "no
// deadline". Compared case-insensitively.
var nullSentinels = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
}

// Normalize converts a heterogeneous date string to ISO 8601.
//
// Already-ISO input is returned unchanged. Other recognized layouts are
// rewritten as a full ISO timestamp at midnight. Empty strings, null
// sentinels, and unparseable input return ok=false, which callers treat
// as a null deadline. Normalize never fails loudly: a bad date must not
// sink an otherwise extractable record.
//
// Normalize is idempotent: feeding it its own non-null output returns
// the same value, because every emitted form parses as ISO.
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if nullSentinels[strings.ToLower(raw)] {
		return "", false
	}

	if _, ok := ParseISO(raw, time.UTC); ok {
		return raw, true
	}

	for _, layout := range fallbackLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.Format("2006-01-02T15:04:05"), true
		}
	}

	return "", false
}

// ParseISO parses an ISO 8601 date or timestamp. Values without an
// explicit zone are interpreted in loc, so deadline proximity is judged
// against the caller's wall clock rather than UTC.
func ParseISO(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range isoLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysUntil returns the number of whole days between now and the
// deadline, flooring toward negative infinity: a deadline 36 hours away
// is 1 day out, and a deadline 12 hours past is -1. The floor keeps
// past-due deadlines firmly on the urgent side of every threshold.
func DaysUntil(deadline, now time.Time) int {
	return int(math.Floor(deadline.Sub(now).Hours() / 24))
}
