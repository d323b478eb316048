package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"

	// Pricing approximations used because chat completions do not include
	// cost. Values represent USD per 1M tokens (gpt-4o-mini).
	openAIGPT4oMiniInputCostPer1M  = 0.15
	openAIGPT4oMiniOutputCostPer1M = 0.60
)

// OpenAIConfig holds configuration for the OpenAI chat client.
type OpenAIConfig struct {
	APIKey     string
	Model      string        // "gpt-4o-mini" (default)
	RateLimit  float64       // Requests per second
	MaxRetries int           // SDK transport retries (0 = single attempt)
	RetryDelay time.Duration // Base retry delay reported to callers
	Timeout    time.Duration // HTTP timeout
	BaseURL    string        // Optional (tests)
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIClient implements LLMClient using the official OpenAI SDK.
type OpenAIClient struct {
	apiKey       string
	defaultModel string
	rateLimit    float64
	maxRetries   int
	retryDelay   time.Duration
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI chat client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.RateLimit <= 0 {
		// Default to ~500 RPM.
		cfg.RateLimit = 8.0
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 1 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.Model,
		rateLimit:    cfg.RateLimit,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// RequestsPerSecond returns the configured rate limit.
func (c *OpenAIClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// MaxRetries returns the SDK transport retry count.
func (c *OpenAIClient) MaxRetries() int {
	return c.maxRetries
}

// RetryDelayBase returns the base delay for backoff.
func (c *OpenAIClient) RetryDelayBase() time.Duration {
	return c.retryDelay
}

// HealthCheck verifies the OpenAI API is reachable and the API key is valid.
func (c *OpenAIClient) HealthCheck(ctx context.Context) error {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("openai models list failed: %w", err)
	}
	if page == nil {
		return fmt.Errorf("openai models list returned nil response")
	}
	return nil
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenAIName,
		Attempts:  1,
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
		// Always sent explicitly so 0 means deterministic decoding.
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	if req.ResponseFormat != nil {
		rf, err := buildOpenAIResponseFormat(req.ResponseFormat)
		if err != nil {
			result.Success = false
			result.ErrorType = "invalid_request"
			result.ErrorMessage = err.Error()
			result.TotalTime = time.Since(start)
			return result, err
		}
		params.ResponseFormat = rf
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		errType, errMsg := classifyOpenAIError(err)
		result.Success = false
		result.ErrorType = errType
		result.ErrorMessage = errMsg
		result.TotalTime = time.Since(start)
		return result, err
	}

	if len(completion.Choices) == 0 {
		result.Success = false
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("no choices in response")
	}

	content := completion.Choices[0].Message.Content

	result.Success = true
	result.Content = content
	result.ModelUsed = completion.Model
	result.PromptTokens = int(completion.Usage.PromptTokens)
	result.CompletionTokens = int(completion.Usage.CompletionTokens)
	result.TotalTokens = int(completion.Usage.TotalTokens)
	result.CostUSD = estimateOpenAICostUSD(completion.Model, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	// Parse JSON if structured output was requested
	if req.ResponseFormat != nil && content != "" {
		parsed, err := ParseStructuredJSON(content)
		if err != nil {
			result.Success = false
			result.ErrorType = "json_parse"
			result.ErrorMessage = fmt.Sprintf("failed to parse JSON response: %v", err)
			return result, nil
		}
		// ParsedJSON stays set on validation failure; downstream
		// enforcement can usually repair a near-miss object.
		result.ParsedJSON = parsed
		if err := validateStructuredJSON(req.ResponseFormat.JSONSchema, parsed); err != nil {
			result.Success = false
			result.ErrorType = "schema_validation"
			result.ErrorMessage = err.Error()
			return result, nil
		}
	}

	return result, nil
}

// buildOpenAIResponseFormat converts a ResponseFormat into SDK params.
// The JSONSchema payload follows the json_schema envelope shape:
// {"name": ..., "strict": ..., "schema": {...}}.
func buildOpenAIResponseFormat(rf *ResponseFormat) (openai.ChatCompletionNewParamsResponseFormatUnion, error) {
	var union openai.ChatCompletionNewParamsResponseFormatUnion

	switch rf.Type {
	case "json_object":
		union.OfJSONObject = &shared.ResponseFormatJSONObjectParam{}
		return union, nil
	case "json_schema", "":
		var envelope struct {
			Name   string          `json:"name"`
			Strict *bool           `json:"strict"`
			Schema json.RawMessage `json:"schema"`
		}
		if err := json.Unmarshal(rf.JSONSchema, &envelope); err != nil {
			return union, fmt.Errorf("invalid json_schema payload: %w", err)
		}
		if envelope.Name == "" {
			envelope.Name = "response"
		}

		var schema any
		if len(envelope.Schema) > 0 {
			if err := json.Unmarshal(envelope.Schema, &schema); err != nil {
				return union, fmt.Errorf("invalid schema in json_schema payload: %w", err)
			}
		}

		js := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   envelope.Name,
			Schema: schema,
		}
		if envelope.Strict != nil {
			js.Strict = openai.Bool(*envelope.Strict)
		}
		union.OfJSONSchema = &shared.ResponseFormatJSONSchemaParam{JSONSchema: js}
		return union, nil
	default:
		return union, fmt.Errorf("unsupported response format type: %s", rf.Type)
	}
}

// classifyOpenAIError maps SDK errors onto result error types.
func classifyOpenAIError(err error) (errorType, message string) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("OpenAI error (status %d)", apiErr.StatusCode)
		}
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return "api_error", msg
		}
		return "http_error", msg
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "context_cancelled", err.Error()
	}
	return "http_error", err.Error()
}

// estimateOpenAICostUSD approximates the USD cost of a completion from
// token counts. Unknown models return 0 rather than a wrong estimate.
func estimateOpenAICostUSD(model string, promptTokens, completionTokens int64) float64 {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-4o-mini") {
		return 0
	}
	inputCost := float64(promptTokens) * (openAIGPT4oMiniInputCostPer1M / 1_000_000.0)
	outputCost := float64(completionTokens) * (openAIGPT4oMiniOutputCostPer1M / 1_000_000.0)
	return inputCost + outputCost
}

var _ LLMClient = (*OpenAIClient)(nil)
var _ HealthChecker = (*OpenAIClient)(nil)
