package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/config"
	"github.com/jackzampolin/intake/internal/extract"
	"github.com/jackzampolin/intake/internal/heuristic"
	"github.com/jackzampolin/intake/internal/llmcall"
)

var (
	providerName  string
	modelOverride string
	offlineMode   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Extract a structured record from one requisition note",
	Long: `Extract a structured record from a single requisition note.

The note is sent to the configured LLM provider with a strict JSON
schema; the response is normalized into the canonical record and
printed on stdout. If the provider call fails, the heuristic extractor
produces the record instead.

Pass the note as an argument, or pipe it on stdin with "-".

Examples:
  intake extract "Need 500 bags of cement urgently for Project Alpha"
  cat note.txt | intake extract -
  intake extract --offline "25mm steel bars, 40 units needed"
  intake extract --provider openrouter "2 truckloads of river sand by 2026-04-01"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, err := readNote(args)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		ex, err := newExtractor(cfg, logger)
		if err != nil {
			return err
		}

		outcome, err := ex.Process(ctx, text)
		if err != nil {
			return err
		}

		logger.Info("note processed",
			"provider", outcome.Provider,
			"model", outcome.Model,
			"fallback", outcome.Fallback,
			"total_tokens", outcome.TotalTokens,
			"cost_usd", outcome.CostUSD,
			"duration", outcome.Duration)

		return api.Output(outcome.Record)
	},
}

func init() {
	extractCmd.Flags().StringVar(&providerName, "provider", "", "LLM provider (default: from config)")
	extractCmd.Flags().StringVar(&modelOverride, "model", "", "model override for this run")
	extractCmd.Flags().BoolVar(&offlineMode, "offline", false, "use the heuristic extractor, no network calls")

	rootCmd.AddCommand(extractCmd)
}

// readNote returns the note text from the argument, or from stdin when
// the argument is "-" or absent.
func readNote(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		text := strings.TrimSpace(args[0])
		if text == "" {
			return "", fmt.Errorf("note text is empty")
		}
		return text, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no note text on stdin")
	}
	return text, nil
}

// newExtractor wires an extractor from config and command flags.
// Provider resolution order: --offline forces the heuristic extractor,
// then --provider, then the configured default.
func newExtractor(cfg *config.Config, logger *slog.Logger) (*extract.Extractor, error) {
	name := providerName
	if name == "" {
		name = cfg.Defaults.LLMProvider
	}
	if offlineMode || cfg.Defaults.Offline {
		name = heuristic.Name
	}

	registry := buildRegistry(cfg, logger)
	client, err := registry.GetLLM(name)
	if err != nil {
		return nil, fmt.Errorf("provider %q not available (is its API key set?): %w", name, err)
	}

	var recorder *llmcall.Recorder
	if cfg.Defaults.RecordCalls {
		h, err := getHome()
		if err != nil {
			return nil, err
		}
		recorder = llmcall.NewRecorder(h.CallLogPath(), logger)
	}

	return extract.New(extract.Options{
		Client:      client,
		Recorder:    recorder,
		Logger:      logger,
		Model:       modelOverride,
		MaxTokens:   cfg.Defaults.MaxTokens,
		Temperature: cfg.Defaults.Temperature,
	}), nil
}
