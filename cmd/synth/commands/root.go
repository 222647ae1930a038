// Package commands implements the synth CLI.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "synth",
		Short: "StellarSynth - Batch Stellar Spectrum Synthesis",
		Long: `StellarSynth coordinates batch synthesis of stellar spectra with the
TurboSpectrum toolchain.

For each target point (Teff, log g, [Fe/H], [Mg/Fe], [Ca/Fe]) it resolves a
model atmosphere from a MARCS catalog, interpolating between the eight
bracketing grid models when no exact match exists, then runs the two-stage
solver to produce a synthetic spectrum.

Features:
  - File, random and grid parameter sampling
  - Bracketing search with alpha-enhancement matching
  - Concurrent jobs with per-job failure isolation
  - SQLite run history and Prometheus metrics`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newSampleCommand())
	rootCmd.AddCommand(newCatalogCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}
