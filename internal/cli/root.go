// Package cli provides the command-line interface for truthlens.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aromalbiju/truthlens-go/internal/client"
	"github.com/aromalbiju/truthlens-go/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	serverFlag string
	configFile string

	// Global config and API client
	cfg       config.Config
	apiClient *client.Client
	logger    *slog.Logger

	closeLogger func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "truthlens",
	Short: "Detect AI-generated images from the command line",
	Long: `TruthLens analyzes images for signs of AI generation or manipulation.

An upload runs through a multi-stage forensics pipeline (CNN ensemble,
frequency analysis, EXIF inspection, reverse image search, AI agent
synthesis) on a TruthLens backend. Progress streams live over a
websocket and renders in the terminal as it happens.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if configFile != "" {
			var err error
			cfg, err = config.LoadFile(cfg, configFile)
			if err != nil {
				return fmt.Errorf("load config file: %w", err)
			}
		}
		if serverFlag != "" {
			cfg.ServerURL = serverFlag
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, closeLogger = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		apiClient = client.New(cfg.ServerURL)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLogger != nil {
			if err := closeLogger(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "backend URL (default from TRUTHLENS_SERVER_URL)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to YAML config file")

	// Add subcommands
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(resultsCmd)
}
