package heuristic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/intake/internal/prompts/requisition"
	"github.com/jackzampolin/intake/internal/providers"
)

// Name is the provider name the offline client registers under.
const Name = "heuristic"

// Client adapts Extract to the LLMClient interface so offline mode
// flows through the same pipeline as a real provider. It answers any
// chat request by pattern-matching the requisition note out of the
// user prompt and returning the record as strict JSON.
type Client struct {
	now func() time.Time
}

// NewClient returns an offline extraction client.
func NewClient() *Client {
	return &Client{now: time.Now}
}

func (c *Client) Name() string { return Name }

// RequestsPerSecond is effectively unlimited; extraction is local.
func (c *Client) RequestsPerSecond() float64 { return 1000 }

func (c *Client) MaxRetries() int { return 0 }

func (c *Client) RetryDelayBase() time.Duration { return 0 }

// HealthCheck always succeeds; there is nothing remote to probe.
func (c *Client) HealthCheck(ctx context.Context) error { return nil }

// Chat extracts a record from the last user message. The message may be
// a rendered extraction prompt or a bare note; both work.
func (c *Client) Chat(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var input string
	for _, m := range req.Messages {
		if m.Role == "user" {
			input = m.Content
		}
	}
	input = requisition.UnwrapInput(input)

	start := time.Now()
	rec := Extract(input, c.now())

	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize extracted record: %w", err)
	}

	elapsed := time.Since(start)
	return &providers.ChatResult{
		Content:       string(b),
		ParsedJSON:    b,
		Provider:      Name,
		ModelUsed:     Name,
		RequestID:     requestID,
		Attempts:      1,
		Success:       true,
		ExecutionTime: elapsed,
		TotalTime:     elapsed,
	}, nil
}

var (
	_ providers.LLMClient     = (*Client)(nil)
	_ providers.HealthChecker = (*Client)(nil)
)
