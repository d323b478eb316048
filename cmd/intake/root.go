package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/intake/internal/api"
	"github.com/jackzampolin/intake/internal/config"
	"github.com/jackzampolin/intake/internal/heuristic"
	"github.com/jackzampolin/intake/internal/home"
	"github.com/jackzampolin/intake/internal/providers"
	"github.com/jackzampolin/intake/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Structured-field extraction for backoffice requisition notes",
	Long: `Intake turns free-text requisition notes into canonical records
using LLM providers with strict schema enforcement.

Every note produces the same seven-field record:
  - material_name, quantity, unit (always present)
  - project_name, location, deadline (null when unknown)
  - urgency (low, medium or high)

Provider failures never surface as missing records: a regex-based
heuristic extractor fills in whenever no provider can answer, and the
same extractor runs the whole pipeline in --offline mode.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.intake/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "intake home directory (default: ~/.intake)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "json", "output format: json or yaml",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn, error (default: from config)",
	)

	// Set output format before any command runs. A .env file is
	// optional; real environment variables win over it.
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// getHome returns the intake home directory, creating it when missing.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return h, nil
}

// loadConfig loads configuration from --config, ./config.yaml or
// ~/.intake/config.yaml, falling back to built-in defaults when no
// file exists.
func loadConfig() (*config.Config, error) {
	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	return cm.Get(), nil
}

// newLogger builds the process logger. The --log-level flag wins over
// the config file. Logs go to stderr so structured output on stdout
// stays machine-readable.
func newLogger(cfg *config.Config) *slog.Logger {
	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}

	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
}

// buildRegistry constructs the provider registry from config. The
// heuristic extractor is registered directly: it needs no credentials
// and must survive config reloads.
func buildRegistry(cfg *config.Config, logger *slog.Logger) *providers.Registry {
	registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig())
	registry.SetLogger(logger)
	registry.RegisterLLM(heuristic.Name, heuristic.NewClient())
	return registry
}
