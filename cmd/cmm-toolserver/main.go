// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the cmm-toolserver CLI. The server
// exposes critical-minerals and research data sources (arXiv, BGS world
// mineral statistics, NETL EDX, UN Comtrade, Google Scholar, the OSTI
// document catalog) and LLM summarization as tools over the Model
// Context Protocol.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/cmm-toolserver/internal/llm"
	"github.com/pdiddy/cmm-toolserver/internal/logging"
	"github.com/pdiddy/cmm-toolserver/internal/registry"
	"github.com/pdiddy/cmm-toolserver/internal/secrets"
	"github.com/pdiddy/cmm-toolserver/internal/sources"
	"github.com/pdiddy/cmm-toolserver/internal/tools"
	"github.com/pdiddy/cmm-toolserver/internal/workflow"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the cmm-toolserver CLI.
var rootCmd = &cobra.Command{
	Use:   "cmm-toolserver",
	Short: "Tool server for critical-minerals and research data sources",
	Long: `cmm-toolserver exposes external data sources as tools over the Model
Context Protocol: arXiv and Google Scholar for literature, BGS World Mineral
Statistics for production data, NETL EDX for CLAIMM datasets, UN Comtrade for
trade flows, the OSTI document catalog for DOE technical reports, and
OpenAI/Anthropic for summarization.

All diagnostics go to stderr; stdout carries only protocol messages.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./cmm-toolserver.yaml or ~/.config/cmm-toolserver/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console or json")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file with provider API keys")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cmm-toolserver")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cmm-toolserver"))
		}
	}

	viper.SetEnvPrefix("CMM_TOOLSERVER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration: defaults overlaid with
// whatever the config file and environment provide.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the persistent flags.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	return logging.New(logging.Config{Level: level, Format: format})
}

// buildRegistry wires clients and registers the full tool surface.
func buildRegistry(cmd *cobra.Command, log zerolog.Logger) (*registry.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	creds, err := secrets.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	if configured := secrets.Configured(creds); len(configured) > 0 {
		log.Info().Strs("credentials", configured).Msg("provider credentials resolved")
	} else {
		log.Warn().Msg("no provider credentials configured; keyed tools will return auth errors")
	}

	arxiv := sources.NewArxivClient(cfg.Arxiv, log)
	summarizer := llm.NewSummarizer(cfg.LLM, creds, log)

	reg := registry.New(log)
	tools.RegisterAll(reg, tools.Deps{
		Arxiv:      arxiv,
		BGS:        sources.NewBGSClient(cfg.BGS, log),
		EDX:        sources.NewEDXClient(cfg.EDX, creds.EDXKey, log),
		Comtrade:   sources.NewComtradeClient(cfg.Comtrade, creds.ComtradeKey, log),
		Scholar:    sources.NewScholarClient(cfg.Scholar, creds.SerpAPIKey, log),
		OSTI:       sources.NewOSTIClient(cfg.OSTI, log),
		Summarizer: summarizer,
		Composer:   workflow.NewComposer(arxiv, summarizer, log),
		Creds:      creds,
	})
	return reg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
