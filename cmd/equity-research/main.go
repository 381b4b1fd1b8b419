// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the equity-research CLI. Subcommands
// run an investigation, serve the HTTP API, read persisted reports and
// replay captured snapshot streams.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/equity-research/internal/secrets"
	"github.com/pdiddy/equity-research/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultUserAgent = "equity-research/0.1"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string

	logger  = zap.NewNop()
	verbose bool
)

// rootCmd is the base command for the equity-research CLI.
var rootCmd = &cobra.Command{
	Use:   "equity-research",
	Short: "AI-orchestrated equity research from a ticker",
	Long: `equity-research plans research topics for a stock ticker, investigates
each topic through web search and fact extraction, and synthesizes an
investment report. Progress is streamed as newline-delimited JSON snapshots.

Use run for a single investigation, serve for the HTTP API, report to read
persisted reports and replay to rebuild progress from a captured stream.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = l

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./equity-research.yaml or ~/.config/equity-research/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of API key files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("equity-research")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "equity-research"))
		}
	}

	viper.SetEnvPrefix("EQUITY_RESEARCH")
	viper.AutomaticEnv()

	viper.SetDefault("research.call_concurrency", 5)
	viper.SetDefault("research.chain_concurrency", 2)
	viper.SetDefault("research.max_search_results", 5)
	viper.SetDefault("research.max_facts_in_synthesis", 50)
	viper.SetDefault("search.backends", []string{"tavily"})
	viper.SetDefault("search.timeout", 30*time.Second)
	viper.SetDefault("search.user_agent", defaultUserAgent)
	viper.SetDefault("quote.timeout", 15*time.Second)
	viper.SetDefault("quote.user_agent", defaultUserAgent)
	viper.SetDefault("store.path", "data/reports.db")
	viper.SetDefault("server.address", ":8080")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// defaultProviders is the generation fallback order used when the config
// names none: Anthropic first, then an OpenAI-compatible endpoint.
func defaultProviders() []types.ProviderConfig {
	return []types.ProviderConfig{
		{Name: "anthropic", Kind: types.ProviderAnthropic, Model: "claude-sonnet-4-5"},
		{Name: "openai", Kind: types.ProviderOpenAI, Model: "gpt-4o-mini"},
	}
}

// loadConfig builds the process configuration from viper, flag overrides
// and .secrets/.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("reading config: %w", err)
	}
	if len(cfg.LLM.Providers) == 0 {
		cfg.LLM.Providers = defaultProviders()
	}
	secrets.Apply(&cfg, loadedSecrets)
	cfg.Research = cfg.Research.WithDefaults()
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
