package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/run-bigpig/agent-guard/pkg/config"
	"github.com/run-bigpig/agent-guard/pkg/logging"
)

var (
	configPath string
	logLevel   string
	logJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "guardagent",
	Short: "Agent guarded by Model Armor",
	Long: `guardagent runs a Gemini agent on Vertex AI. Every user prompt, model
response and tool result is screened by a Model Armor template; unsafe
content is replaced with a refusal before anyone sees it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON instead of console output")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) logging.Logger {
	return logging.New(
		logging.WithLevel(cfg.LogLevel),
		logging.WithOutput(os.Stderr),
		logging.WithConsole(!logJSON),
	)
}
