package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/batch"
)

var (
	batchInputFile  string
	batchOutputFile string
)

var batchCmd = &cobra.Command{
	Use:   "batch -i <input-file>",
	Short: "Process a file of requisition notes, one per line",
	Long: `Process a text file of requisition notes, one note per line.

Blank lines and lines starting with # are skipped. Results are written
as a JSON array; each element is the canonical record annotated with
the originating note under "_input". A run summary is printed on
stdout when the batch finishes.

The records path defaults to the input path with a .records.json
suffix. (-o is the global output-format flag, so the records file uses
--output-file.)

Examples:
  intake batch -i notes.txt
  intake batch -i notes.txt --output-file records.json
  intake batch -i notes.txt --offline`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		ex, err := newExtractor(cfg, logger)
		if err != nil {
			return err
		}

		outputPath := batchOutputFile
		if outputPath == "" {
			outputPath = defaultBatchOutput(batchInputFile)
		}

		runner := batch.NewRunner(ex, logger)
		summary, err := runner.RunFile(ctx, batchInputFile, outputPath)
		if err != nil {
			return err
		}

		return api.Output(summary)
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchInputFile, "input", "i", "", "notes file, one note per line (required)")
	batchCmd.Flags().StringVar(&batchOutputFile, "output-file", "", "records file (default: <input>.records.json)")
	batchCmd.Flags().StringVar(&providerName, "provider", "", "LLM provider (default: from config)")
	batchCmd.Flags().StringVar(&modelOverride, "model", "", "model override for this run")
	batchCmd.Flags().BoolVar(&offlineMode, "offline", false, "use the heuristic extractor, no network calls")
	_ = batchCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(batchCmd)
}

// defaultBatchOutput derives the records path from the input path:
// notes.txt becomes notes.records.json.
func defaultBatchOutput(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".records.json"
}
