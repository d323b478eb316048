// Package extract runs the requisition extraction pipeline: prompt a
// collaborator model, recover a JSON object from whatever it returns,
// enforce the canonical schema, and classify urgency from the original
// text. Processing one note never fails outright — every degradation
// has a defined landing spot, from heuristic fallback to the
// all-default record.
package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackzampolin/intake/internal/heuristic"
	"github.com/jackzampolin/intake/internal/llmcall"
	"github.com/jackzampolin/intake/internal/prompts/requisition"
	"github.com/jackzampolin/intake/internal/providers"
	"github.com/jackzampolin/intake/internal/record"
	"github.com/jackzampolin/intake/internal/urgency"
)

// Options configures an Extractor.
type Options struct {
	// Client is the collaborator used for extraction. A nil Client runs
	// fully offline on the heuristic extractor.
	Client providers.LLMClient

	// Recorder, when set, receives a call record for every collaborator
	// round trip, successful or not.
	Recorder *llmcall.Recorder

	Logger *slog.Logger

	// Model overrides the provider's default model when set.
	Model string

	// MaxTokens overrides the canonical completion budget when > 0.
	MaxTokens int

	// Temperature overrides the canonical temperature when nonzero.
	// Zero is the canonical value: deterministic decoding.
	Temperature float64

	// Now is the clock used for deadline-proximity urgency. Tests
	// inject a fixed time.
	Now func() time.Time
}

// Extractor turns free-text requisition notes into canonical records.
// Safe for sequential reuse across many notes; the rate limiter paces
// outbound collaborator calls to the client's advertised rate.
type Extractor struct {
	client   providers.LLMClient
	limiter  *providers.RateLimiter
	recorder *llmcall.Recorder
	logger   *slog.Logger
	now      func() time.Time

	model       string
	maxTokens   int
	temperature float64
}

// Outcome reports how one note was processed.
type Outcome struct {
	Input  string
	Record record.Record

	// Provider and Model name what actually produced the record.
	Provider string
	Model    string

	// Fallback is true when the collaborator call failed and the
	// heuristic extractor substituted; CallError carries the failure.
	Fallback  bool
	CallError string

	TotalTokens int
	CostUSD     float64
	Duration    time.Duration
}

// New builds an Extractor.
func New(opts Options) *Extractor {
	client := opts.Client
	if client == nil {
		client = heuristic.NewClient()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Extractor{
		client:      client,
		limiter:     providers.NewRateLimiter(client.RequestsPerSecond()),
		recorder:    opts.Recorder,
		logger:      logger,
		now:         now,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}
}

// Client returns the collaborator this extractor sends notes to.
func (e *Extractor) Client() providers.LLMClient { return e.client }

// Process extracts one requisition note.
//
// The only error it returns is context cancellation; every other
// failure degrades inside the Outcome. A failed collaborator call falls
// back to heuristic extraction, unparseable output becomes the
// all-default record, and a record that still fails validation is
// published with urgency coerced to low.
func (e *Extractor) Process(ctx context.Context, text string) (*Outcome, error) {
	start := time.Now()

	req := requisition.CreateChatRequest(text)
	if e.model != "" {
		req.Model = e.model
	}
	if e.maxTokens > 0 {
		req.MaxTokens = e.maxTokens
	}
	if e.temperature != 0 {
		req.Temperature = e.temperature
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	outcome := &Outcome{Input: text, Provider: e.client.Name()}

	result, err := e.client.Chat(ctx, req)
	if result != nil {
		outcome.Model = result.ModelUsed
		outcome.TotalTokens = result.TotalTokens
		outcome.CostUSD = result.CostUSD
		if e.recorder != nil {
			e.recorder.Record(llmcall.FromChatResult(requisition.PromptKey, result))
		}
	}

	var rec record.Record
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("collaborator call failed, falling back to heuristic extraction",
			"provider", e.client.Name(),
			"error", err)
		rec = heuristic.Extract(text, e.now())
		outcome.Fallback = true
		outcome.CallError = err.Error()
		outcome.Provider = heuristic.Name
		outcome.Model = heuristic.Name

	default:
		rec = e.recoverRecord(result)
	}

	// The model's urgency guess is advisory; the published value is
	// recomputed from the original text and the enforced deadline.
	deadline := ""
	if rec.Deadline != nil {
		deadline = *rec.Deadline
	}
	rec.Urgency = urgency.Infer(text, deadline, e.now())

	if err := record.Validate(rec); err != nil {
		e.logger.Warn("extracted record failed schema validation, coercing urgency",
			"error", err)
		rec.Urgency = urgency.Low
	}

	outcome.Record = rec
	outcome.Duration = time.Since(start)
	return outcome, nil
}

// recoverRecord turns a completed chat result into a record: parsed
// JSON when available, a parse of the raw content otherwise, and the
// all-default record when neither yields an object.
func (e *Extractor) recoverRecord(result *providers.ChatResult) record.Record {
	parsed := result.ParsedJSON
	if parsed == nil && result.Content != "" {
		if p, err := providers.ParseStructuredJSON(result.Content); err == nil {
			parsed = p
		}
	}
	if parsed == nil {
		e.logger.Warn("no JSON object in model output, using default record",
			"provider", result.Provider,
			"error_type", result.ErrorType)
		return record.Default()
	}

	rec, err := requisition.ParseResult(parsed)
	if err != nil {
		e.logger.Warn("model output did not decode as a record, using default record",
			"provider", result.Provider,
			"error", err)
		return record.Default()
	}
	return rec
}
