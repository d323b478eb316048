// Package record defines the canonical requisition record and the
// enforcement pass that coerces arbitrary extraction output into it.
//
// Enforcement is the recovery layer of the pipeline: model output that
// parses as JSON but misses fields, mistypes values, or invents extras
// is folded into a well-formed Record instead of being rejected.
// Enforce never fails and is idempotent, so it is safe to run on
// already-clean records.
package record

import (
	"strconv"
	"strings"

	"github.com/jackzampolin/intake/internal/dates"
	"github.com/jackzampolin/intake/internal/urgency"
)

// Record is the canonical shape of one extracted requisition. Optional
// fields are pointers so null survives a round trip through JSON; the
// remaining fields carry published defaults instead of null.
type Record struct {
	MaterialName string        `json:"material_name"`
	Quantity     float64       `json:"quantity"`
	Unit         string        `json:"unit"`
	ProjectName  *string       `json:"project_name"`
	Location     *string       `json:"location"`
	Urgency      urgency.Level `json:"urgency"`
	Deadline     *string       `json:"deadline"`
}

// Default returns the record emitted when extraction yields nothing at
// all: unknown material, zero quantity, generic unit, low urgency.
func Default() Record {
	return Record{
		MaterialName: "Unknown",
		Unit:         "units",
		Urgency:      urgency.Low,
	}
}

// Enforce coerces a decoded JSON object into a Record.
//
// Only the canonical fields are read; extras are dropped. Each field is
// coerced independently: numeric strings become quantities, unknown
// urgency values fall back to "low", deadlines are normalized to ISO
// 8601 or null, and wrongly-typed optional fields become null. Missing
// or empty material and unit take the published defaults. Enforce never
// returns an error: a malformed object yields Default-shaped fields,
// not a failure.
func Enforce(raw map[string]any) Record {
	var r Record

	r.MaterialName = stringValue(raw["material_name"])
	r.Quantity = coerceQuantity(raw["quantity"])
	r.Unit = stringValue(raw["unit"])
	r.ProjectName = stringOrNil(raw["project_name"])
	r.Location = stringOrNil(raw["location"])

	if s, ok := raw["urgency"].(string); ok && urgency.Valid(s) {
		r.Urgency = urgency.Level(s)
	} else {
		r.Urgency = urgency.Low
	}

	if s, ok := raw["deadline"].(string); ok {
		if normalized, ok := dates.Normalize(s); ok {
			r.Deadline = &normalized
		}
	}

	// Backstops: a record always names a material and a unit.
	if r.MaterialName == "" {
		r.MaterialName = "Unknown"
	}
	if r.Unit == "" {
		r.Unit = "units"
	}

	return r
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func stringOrNil(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

// coerceQuantity accepts the value shapes models actually emit for a
// number: JSON numbers, numeric strings, and the occasional boolean.
// Anything else is zero. Quantities are never negative.
func coerceQuantity(v any) float64 {
	var f float64
	switch q := v.(type) {
	case float64:
		f = q
	case int:
		f = float64(q)
	case int64:
		f = float64(q)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if q {
			return 1
		}
		return 0
	default:
		return 0
	}
	if f < 0 {
		return 0
	}
	return f
}
