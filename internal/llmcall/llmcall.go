// Package llmcall keeps an append-only JSONL log of collaborator
// calls. The log is the audit trail for spend and behavior: every
// request is recorded with tokens, cost, latency, and outcome, whether
// it succeeded or not. Recording is fire-and-forget so a full disk or
// bad permissions never block extraction.
package llmcall

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/intake/internal/providers"
)

// Call is one recorded collaborator call.
type Call struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	PromptKey        string    `json:"prompt_key,omitempty"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model,omitempty"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	TotalTokens      int       `json:"total_tokens,omitempty"`
	CostUSD          float64   `json:"cost_usd,omitempty"`
	DurationMS       int64     `json:"duration_ms"`
	Attempts         int       `json:"attempts,omitempty"`
	Success          bool      `json:"success"`
	ErrorType        string    `json:"error_type,omitempty"`
	Error            string    `json:"error,omitempty"`
	Response         string    `json:"response,omitempty"`
}

// FromChatResult builds a call record from a provider result.
func FromChatResult(promptKey string, result *providers.ChatResult) Call {
	id := result.RequestID
	if id == "" {
		id = uuid.New().String()
	}
	return Call{
		ID:               id,
		Timestamp:        time.Now().UTC(),
		PromptKey:        promptKey,
		Provider:         result.Provider,
		Model:            result.ModelUsed,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		CostUSD:          result.CostUSD,
		DurationMS:       result.TotalTime.Milliseconds(),
		Attempts:         result.Attempts,
		Success:          result.Success,
		ErrorType:        result.ErrorType,
		Error:            result.ErrorMessage,
		Response:         result.Content,
	}
}

// Recorder appends calls to a JSONL file.
type Recorder struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewRecorder returns a recorder writing to path. A nil logger falls
// back to the default logger.
func NewRecorder(path string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{path: path, logger: logger}
}

// Path returns the log file location.
func (r *Recorder) Path() string { return r.path }

// Record appends one call to the log. Failures are logged at Warn and
// swallowed; the call's outcome has already been delivered to the
// caller and must not be affected by bookkeeping.
func (r *Recorder) Record(call Call) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.append(call); err != nil {
		r.logger.Warn("failed to record LLM call",
			"path", r.path,
			"call_id", call.ID,
			"error", err)
	}
}

func (r *Recorder) append(call Call) error {
	data, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create call log dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open call log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append call log: %w", err)
	}
	return nil
}

// List returns recorded calls, newest first, up to limit. A limit of
// zero or less returns everything. A missing log file is an empty
// history, not an error; corrupt lines are skipped with a warning so
// one bad write cannot hide the rest of the log.
func (r *Recorder) List(limit int) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open call log: %w", err)
	}
	defer f.Close()

	var calls []Call
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var call Call
		if err := json.Unmarshal(raw, &call); err != nil {
			r.logger.Warn("skipping corrupt call log line",
				"path", r.path,
				"line", line,
				"error", err)
			continue
		}
		calls = append(calls, call)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read call log: %w", err)
	}

	// Newest first.
	for i, j := 0, len(calls)-1; i < j; i, j = i+1, j-1 {
		calls[i], calls[j] = calls[j], calls[i]
	}
	if limit > 0 && len(calls) > limit {
		calls = calls[:limit]
	}
	return calls, nil
}
