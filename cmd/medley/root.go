package main

import (
	"fmt"
	"os"
	"strings"

	medley "github.com/Chuabacca/Medley-AI"
	"github.com/Chuabacca/Medley-AI/internal/cli"
	"github.com/Chuabacca/Medley-AI/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "medley",
	Short: "Medley runs guided hair loss intake consultations",
	Long: `Medley walks a patient through a schema of intake questions. Every turn is
phrased by a language model and streamed as it is written, and every answer is
mapped onto a structured consultation record.

Settings come from medley.yaml (or --config), a .env file and MEDLEY_* variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config (default medley.yaml when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug records to stderr")
	rootCmd.PersistentFlags().String("schema", "", "Question schema file, overrides schema.path")
	rootCmd.PersistentFlags().String("store", "", "Session store driver, overrides store.driver")
	rootCmd.PersistentFlags().String("provider", "", "Backend provider, overrides backend.provider")
	rootCmd.PersistentFlags().String("log-file", "", "Write JSON logs to this rotated file, overrides log.file")
}

// loadConfig reads the configuration and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"schema":   &cfg.Schema.Path,
		"store":    &cfg.Store.Driver,
		"provider": &cfg.Backend.Provider,
		"log-file": &cfg.Log.File,
	}
	for name, field := range overrides {
		if cmd.Flags().Changed(name) {
			*field, _ = cmd.Flags().GetString(name)
		}
	}
	return cfg, nil
}

// openApp builds the application for a command. The returned func releases it.
func openApp(cmd *cobra.Command, cfg *config.Config, mode cli.LogMode, opts ...cli.AppOption) (*cli.App, func(), error) {
	debug, _ := cmd.Flags().GetBool("debug")
	logger, logCloser := cli.NewLogger(cfg.Log, debug, mode)

	app, err := cli.NewApp(cmd.Context(), cfg, logger, opts...)
	if err != nil {
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close application", "err", err)
		}
		if logCloser != nil {
			_ = logCloser.Close()
		}
	}
	return app, cleanup, nil
}

func version() string {
	return strings.TrimSpace(medley.Version)
}
