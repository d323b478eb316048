package main

import (
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/providers"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect configured LLM providers",
	Long: `Inspect the LLM providers available for extraction.

Providers come from config (~/.intake/config.yaml); a provider whose
API key does not resolve is not registered. The heuristic extractor is
always available.

Examples:
  intake providers list            # List registered providers
  intake providers check           # Health-check all providers
  intake providers check openai    # Health-check one provider`,
}

type providerInfo struct {
	Name              string  `json:"name" yaml:"name"`
	Default           bool    `json:"default" yaml:"default"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	MaxRetries        int     `json:"max_retries" yaml:"max_retries"`
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry := buildRegistry(cfg, newLogger(cfg))

		infos := make([]providerInfo, 0)
		for _, name := range registry.ListLLM() {
			client, err := registry.GetLLM(name)
			if err != nil {
				continue
			}
			infos = append(infos, providerInfo{
				Name:              name,
				Default:           name == cfg.Defaults.LLMProvider,
				RequestsPerSecond: client.RequestsPerSecond(),
				MaxRetries:        client.MaxRetries(),
			})
		}
		return api.Output(infos)
	},
}

type checkResult struct {
	Name    string `json:"name" yaml:"name"`
	Healthy bool   `json:"healthy" yaml:"healthy"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

var providersCheckCmd = &cobra.Command{
	Use:   "check [provider]",
	Short: "Health-check registered providers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry := buildRegistry(cfg, newLogger(cfg))

		names := registry.ListLLM()
		if len(args) == 1 {
			names = args
		}

		results := make([]checkResult, 0, len(names))
		for _, name := range names {
			client, err := registry.GetLLM(name)
			if err != nil {
				results = append(results, checkResult{Name: name, Error: err.Error()})
				continue
			}

			hc, ok := client.(providers.HealthChecker)
			if !ok {
				// No remote dependency to probe
				results = append(results, checkResult{Name: name, Healthy: true})
				continue
			}

			err = retry.Do(
				func() error { return hc.HealthCheck(ctx) },
				retry.Context(ctx),
				retry.Attempts(3),
				retry.Delay(1*time.Second),
				retry.LastErrorOnly(true),
			)
			result := checkResult{Name: name, Healthy: err == nil}
			if err != nil {
				result.Error = err.Error()
			}
			results = append(results, result)
		}
		return api.Output(results)
	},
}

func init() {
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersCheckCmd)

	rootCmd.AddCommand(providersCmd)
}
