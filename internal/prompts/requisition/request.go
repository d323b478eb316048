package requisition

import (
	"encoding/json"

	"github.com/jackzampolin/intake/internal/providers"
	"github.com/jackzampolin/intake/internal/record"
)

// Request defaults. Two hundred tokens comfortably fits a seven-field
// record; temperature zero keeps extraction deterministic.
const (
	DefaultMaxTokens   = 200
	DefaultTemperature = 0.0
)

// CreateChatRequest builds the extraction request for one requisition
// note. The caller may override Model, MaxTokens, and Temperature
// before sending; Model left empty uses the provider default.
func CreateChatRequest(text string) *providers.ChatRequest {
	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(text)},
		},
		ResponseFormat: buildResponseFormat(),
		Temperature:    DefaultTemperature,
		MaxTokens:      DefaultMaxTokens,
	}
}

// ParseResult folds parsed model output into a canonical record. The
// error reports undecodable JSON; shape problems inside a decodable
// object are repaired by enforcement instead.
func ParseResult(parsed json.RawMessage) (record.Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(parsed, &raw); err != nil {
		return record.Default(), err
	}
	return record.Enforce(raw), nil
}

func buildResponseFormat() *providers.ResponseFormat {
	jsonSchema, _ := json.Marshal(ExtractionSchema["json_schema"])
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: jsonSchema,
	}
}
