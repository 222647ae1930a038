package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stellarsynth/stellarsynth/pkg/config"
)

func newValidateCommand() *cobra.Command {
	var checkPaths bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the run configuration",
		Long: `Validate the configuration file without starting a run.

Checks YAML syntax, field constraints, range ordering and the
mode-dependent sampling requirements. With --paths, additionally verifies
that every configured directory and file exists.`,
		Example: `  # Validate the default config file
  synth validate

  # Also check that the toolchain and data directories exist
  synth validate --paths`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if checkPaths {
				for _, p := range []struct{ name, path string }{
					{"paths.turbospectrum", cfg.Paths.Turbospectrum},
					{"paths.interpolator", cfg.Paths.Interpolator},
					{"paths.linelists", cfg.Paths.Linelists},
					{"paths.model_atmospheres", cfg.Paths.ModelAtmospheres},
				} {
					if _, err := os.Stat(p.path); err != nil {
						return fmt.Errorf("%s: %w", p.name, err)
					}
				}
				if cfg.Sampling.Mode == "file" {
					if _, err := os.Stat(cfg.Paths.ParameterFile); err != nil {
						return fmt.Errorf("paths.parameter_file: %w", err)
					}
				}
			}

			fmt.Printf("%s is valid\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkPaths, "paths", false, "verify that configured paths exist")

	return cmd
}
