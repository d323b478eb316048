package record

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is the canonical requisition schema. It does double duty: the
// prompt layer embeds it in structured-output requests so providers
// constrain generation to this shape, and Validate compiles it as the
// final guard on enforced records. Every field is required; optional
// values are explicit nulls, never omitted keys.
var Schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"material_name": map[string]any{
			"type":        "string",
			"description": "Name of the material being requested",
		},
		"quantity": map[string]any{
			"type":        "number",
			"minimum":     0,
			"description": "Numeric quantity requested",
		},
		"unit": map[string]any{
			"type":        "string",
			"description": "Unit of measure (bags, kg, units, truckloads...)",
		},
		"project_name": map[string]any{
			"type":        []string{"string", "null"},
			"description": "Project the material is for, if mentioned",
		},
		"location": map[string]any{
			"type":        []string{"string", "null"},
			"description": "Delivery location or site, if mentioned",
		},
		"urgency": map[string]any{
			"type":        "string",
			"enum":        []string{"low", "medium", "high"},
			"description": "How soon the material is needed",
		},
		"deadline": map[string]any{
			"type":        []string{"string", "null"},
			"description": "ISO 8601 deadline, if mentioned",
		},
	},
	"required": []string{
		"material_name", "quantity", "unit", "project_name",
		"location", "urgency", "deadline",
	},
	"additionalProperties": false,
}

var compiledSchema = func() *jsonschema.Schema {
	b, err := json.Marshal(Schema)
	if err != nil {
		panic(fmt.Sprintf("marshal requisition schema: %v", err))
	}
	return jsonschema.MustCompileString("requisition.json", string(b))
}()

// Validate checks a record against the canonical schema. Enforcement
// should make failures unreachable; this is the final guard so a
// coercion bug cannot publish a malformed record.
func Validate(r Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("failed to decode record for validation: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("record does not match requisition schema: %w", err)
	}
	return nil
}
