// Package heuristic extracts requisition fields with regular
// expressions. It is the fallback when no language model is reachable
// and the engine behind offline mode: coarse, deterministic, and always
// available. Its records satisfy the canonical schema without needing
// repair, so they flow through the same enforcement path as model
// output.
package heuristic

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackzampolin/intake/internal/dates"
	"github.com/jackzampolin/intake/internal/record"
	"github.com/jackzampolin/intake/internal/urgency"
)

var quantityRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mm|kg|units?|bags?|truckloads?|tons?|liters?)`)

// materialRes are tried in order, most specific first. The generic
// three-word pattern catches phrasing the earlier shapes miss, at the
// cost of sometimes grabbing surrounding words.
var materialRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+mm\s+\w+\s+\w+)`), // "25mm steel bars"
	regexp.MustCompile(`(?i)(\w+\s+Cement)`),      // "UltraTech Cement"
	regexp.MustCompile(`(?i)(\w+\s+sand)`),        // "river sand"
	regexp.MustCompile(`(?i)(\w+\s+\w+\s+\w+)`),   // generic
}

var projectRe = regexp.MustCompile(`(?i)Project\s+(\w+)`)

var locationRe = regexp.MustCompile(`(?i)(Mumbai|Bangalore|Delhi|Chennai|Kolkata|Pune|Hyderabad|site\s+\w+)`)

// deadlineRes capture date-looking spans; each candidate runs through
// the date normalizer and the first one that parses wins. Vaguer
// phrases ("by Friday", "month end") never normalize and so yield a
// null deadline.
var deadlineRes = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}(?:T\d{2}:\d{2}:\d{2})?`),     // ISO
	regexp.MustCompile(`(?i)\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]+\s+\d{4}`), // "15th March 2026"
	regexp.MustCompile(`(?i)[A-Za-z]+\s+\d{1,2},\s*\d{4}`),             // "March 15, 2026"
}

var ordinalRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)

// Extract pattern-matches a requisition record out of free text. The
// clock decides deadline-proximity urgency, so callers inject it.
func Extract(text string, now time.Time) record.Record {
	rec := record.Record{
		MaterialName: "Unknown",
		Quantity:     0,
		Unit:         "units",
	}

	if m := quantityRe.FindStringSubmatch(text); m != nil {
		if q, err := strconv.ParseFloat(m[1], 64); err == nil {
			rec.Quantity = q
		}
		rec.Unit = strings.ToLower(m[2])
	}

	for _, re := range materialRes {
		if m := re.FindStringSubmatch(text); m != nil {
			rec.MaterialName = m[1]
			break
		}
	}

	if m := projectRe.FindStringSubmatch(text); m != nil {
		project := m[1]
		rec.ProjectName = &project
	}

	if m := locationRe.FindStringSubmatch(text); m != nil {
		location := m[1]
		rec.Location = &location
	}

	deadline := extractDeadline(text)
	if deadline != "" {
		rec.Deadline = &deadline
	}

	rec.Urgency = urgency.Infer(text, deadline, now)

	return rec
}

// extractDeadline returns the first date-looking span that normalizes
// to ISO 8601, or "" when the text names no parseable date.
func extractDeadline(text string) string {
	for _, re := range deadlineRes {
		m := re.FindString(text)
		if m == "" {
			continue
		}
		candidate := ordinalRe.ReplaceAllString(m, "$1")
		if normalized, ok := dates.Normalize(candidate); ok {
			return normalized
		}
	}
	return ""
}
