package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/llmcall"
)

var callsLimit int

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Show recorded LLM calls, newest first",
	Long: `Show the LLM call history recorded at ~/.intake/calls.jsonl.

Every provider round trip is recorded with tokens, cost, timing and
outcome. Recording is controlled by the defaults.record_calls config
key.

Examples:
  intake calls               # Last 20 calls
  intake calls --limit 5     # Last 5 calls
  intake calls --limit 0     # Everything`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		recorder := llmcall.NewRecorder(h.CallLogPath(), newLogger(cfg))
		calls, err := recorder.List(callsLimit)
		if err != nil {
			return err
		}
		if calls == nil {
			calls = []llmcall.Call{}
		}
		return api.Output(calls)
	},
}

func init() {
	callsCmd.Flags().IntVar(&callsLimit, "limit", 20, "max calls to show (0 = all)")

	rootCmd.AddCommand(callsCmd)
}
