package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellarsynth/stellarsynth/pkg/config"
	"github.com/stellarsynth/stellarsynth/pkg/sampler"
)

func newSampleCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate target points without running a synthesis",
		Long: `Generate the run's target point set from the configured sampling mode
and print it, or write it as a parameter file.

A written file can be fed back through file-mode sampling, so an expensive
random draw can be frozen once and reused across runs.`,
		Example: `  # Print the sampled points
  synth sample

  # Freeze the point set for later file-mode runs
  synth sample --output points.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			points, err := sampler.New(cfg.Sampling, cfg.Paths.ParameterFile).Generate()
			if err != nil {
				return err
			}

			if output != "" {
				if err := sampler.WritePointsFile(output, points); err != nil {
					return err
				}
				fmt.Printf("Wrote %d points to %s\n", len(points), output)
				return nil
			}

			for _, p := range points {
				fmt.Println(p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write points to a parameter file instead of stdout")

	return cmd
}
