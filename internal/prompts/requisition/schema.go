package requisition

import (
	"github.com/jackzampolin/intake/internal/record"
)

// ExtractionSchema is the structured-output schema for requisition
// extraction, wrapping the canonical record schema in the json_schema
// envelope providers expect. Strict mode pins the model to exactly the
// published fields.
var ExtractionSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "requisition_record",
		"strict": true,
		"schema": record.Schema,
	},
}
