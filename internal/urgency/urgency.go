// Package urgency classifies how soon a requisition needs attention.
//
// Classification is deliberately deterministic and runs outside the
// language model: the model's own urgency guess is always discarded and
// recomputed here from the original text, so two runs over the same
// input agree even when the model does not.
package urgency

import (
	"strings"
	"time"

	"github.com/jackzampolin/intake/internal/dates"
)

// Level is a requisition urgency classification.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Valid reports whether s is one of the recognized levels.
func Valid(s string) bool {
	switch Level(s) {
	case Low, Medium, High:
		return true
	}
	return false
}

// Keyword lists use substring matching against the lowercased text, so
// "urgently" also trips "urgent". Matching is intentionally loose: a
// false high beats a missed emergency.
var highKeywords = []string{
	"urgent",
	"urgently",
	"asap",
	"as soon as possible",
	"immediately",
	"critical",
	"emergency",
	"rush",
}

var mediumKeywords = []string{
	"soon",
	"priority",
	"important",
	"needed",
}

// Thresholds for deadline proximity, in whole days.
const (
	highWithinDays   = 7
	mediumWithinDays = 30
)

// Infer classifies the urgency of a requisition.
//
// Signals are checked in fixed priority order: explicit high-urgency
// wording wins outright, then deadline proximity (under a week is high,
// under a month is medium, past-due counts as under a week), then
// softer wording, then low. The deadline must be ISO 8601; anything
// else is silently ignored rather than treated as a signal.
func Infer(text, deadline string, now time.Time) Level {
	lower := strings.ToLower(text)

	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			return High
		}
	}

	if deadline != "" {
		if due, ok := dates.ParseISO(deadline, now.Location()); ok {
			days := dates.DaysUntil(due, now)
			if days < highWithinDays {
				return High
			}
			if days < mediumWithinDays {
				return Medium
			}
		}
	}

	for _, kw := range mediumKeywords {
		if strings.Contains(lower, kw) {
			return Medium
		}
	}

	return Low
}
