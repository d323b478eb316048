// Package batch processes files of requisition notes, one note per
// line, and writes the extracted records as a single JSON document.
// Processing is strictly sequential: notes are independent, order is
// preserved, and one bad line never stops the run.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/intake/internal/extract"
	"github.com/jackzampolin/intake/internal/record"
)

// Entry is one element of the batch output: the extracted record plus
// the original line it came from. Error is set only when processing the
// line failed entirely and the record holds defaults.
type Entry struct {
	record.Record
	Input string `json:"_input"`
	Error string `json:"_error,omitempty"`
}

// Summary totals one batch run.
type Summary struct {
	RunID       string  `json:"run_id" yaml:"run_id"`
	Notes       int     `json:"notes" yaml:"notes"`
	Fallbacks   int     `json:"fallbacks" yaml:"fallbacks"`
	Errors      int     `json:"errors" yaml:"errors"`
	TotalTokens int     `json:"total_tokens" yaml:"total_tokens"`
	TotalCost   float64 `json:"total_cost_usd" yaml:"total_cost_usd"`
	DurationMS  int64   `json:"duration_ms" yaml:"duration_ms"`
}

// Runner drives an extractor over a file of notes.
type Runner struct {
	extractor *extract.Extractor
	logger    *slog.Logger
}

// NewRunner builds a batch runner. A nil logger falls back to the
// default logger.
func NewRunner(extractor *extract.Extractor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{extractor: extractor, logger: logger}
}

// Run processes notes from input sequentially and returns one entry per
// note. Blank lines and lines starting with '#' are skipped. A failed
// line yields a default record annotated with the error; only context
// cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, input io.Reader) ([]Entry, *Summary, error) {
	start := time.Now()
	entries := []Entry{}
	summary := &Summary{RunID: uuid.New().String()}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r.logger.Info("processing note",
			"line", lineNum,
			"preview", preview(line))

		outcome, err := r.extractor.Process(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, fmt.Errorf("batch aborted at line %d: %w", lineNum, err)
			}
			// Process only fails on cancellation, handled above. Anything
			// else is isolated to this line.
			r.logger.Error("note processing failed",
				"line", lineNum,
				"error", err)
			entries = append(entries, Entry{
				Record: record.Default(),
				Input:  line,
				Error:  err.Error(),
			})
			summary.Errors++
			summary.Notes++
			continue
		}

		if outcome.Fallback {
			summary.Fallbacks++
		}
		summary.TotalTokens += outcome.TotalTokens
		summary.TotalCost += outcome.CostUSD
		summary.Notes++

		entries = append(entries, Entry{
			Record: outcome.Record,
			Input:  line,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read input: %w", err)
	}

	summary.DurationMS = time.Since(start).Milliseconds()
	return entries, summary, nil
}

// RunFile processes inputPath and writes the entries to outputPath as
// pretty-printed JSON. The output file is written once, after the whole
// run completes.
func (r *Runner) RunFile(ctx context.Context, inputPath, outputPath string) (*Summary, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	entries, summary, err := r.Run(ctx, f)
	if err != nil {
		return nil, err
	}

	if err := WriteRecords(outputPath, entries); err != nil {
		return nil, err
	}

	r.logger.Info("batch complete",
		"run_id", summary.RunID,
		"notes", summary.Notes,
		"fallbacks", summary.Fallbacks,
		"errors", summary.Errors,
		"total_tokens", summary.TotalTokens,
		"total_cost_usd", summary.TotalCost,
		"output", outputPath)
	return summary, nil
}

// WriteRecords writes entries to path as a pretty-printed JSON array.
// An empty batch writes "[]", not null.
func WriteRecords(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize records: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// preview truncates a note for log lines.
func preview(line string) string {
	const max = 50
	if len(line) <= max {
		return line
	}
	return line[:max] + "..."
}
