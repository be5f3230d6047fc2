// Package cmd implements the inmo command line using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dodoricogino/INMO-enlaces-PDF/config"
)

var (
	cfg *config.Config

	flagLogLevel  string
	flagSelectors string
)

var rootCmd = &cobra.Command{
	Use:   "inmo",
	Short: "inmo - turn real-estate listing URLs into structured property data",
	Long: `inmo extracts listings from supported real-estate portals into a normalized
payload, stores reviewed properties, and serves brochures and public links.

Usage:
  inmo serve
  inmo extract <url> [--json]
  inmo batch <file> [--out results.csv]
  inmo portals`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}
		if flagSelectors != "" {
			cfg.SelectorsDir = flagSelectors
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagSelectors, "selectors", "", "Directory with extra selector maps (overrides SELECTORS_DIR)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
