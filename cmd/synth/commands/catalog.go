package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/stellarsynth/stellarsynth/pkg/atmosphere"
	"github.com/stellarsynth/stellarsynth/pkg/config"
	"github.com/stellarsynth/stellarsynth/pkg/stellar"
)

func newCatalogCommand() *cobra.Command {
	var (
		list    bool
		resolve string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the model atmosphere catalog",
		Long: `Scan the model atmosphere directory and report what the catalog holds.

With --resolve, run the bracketing search for a single point and show
whether it hits the catalog exactly or which eight models would feed the
interpolator.`,
		Example: `  # Catalog summary
  synth catalog

  # Every parseable model filename
  synth catalog --list

  # How one point would resolve
  synth catalog --resolve "5500 4.25 -0.25 0.1 0.0"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			catalog, err := atmosphere.BuildCatalog(cfg.Paths.ModelAtmospheres)
			if err != nil {
				return err
			}

			if resolve != "" {
				return resolvePoint(catalog, cfg, resolve)
			}

			byTurbulence := make(map[string]int)
			for _, rec := range catalog.Records {
				byTurbulence[rec.Turbulence]++
			}
			fmt.Printf("%d model atmospheres in %s\n", catalog.Len(), cfg.Paths.ModelAtmospheres)
			codes := make([]string, 0, len(byTurbulence))
			for code := range byTurbulence {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			for _, code := range codes {
				fmt.Printf("  turbulence %s: %d\n", code, byTurbulence[code])
			}

			if list {
				for _, rec := range catalog.Records {
					fmt.Println(rec.Filename)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list every parseable model filename")
	cmd.Flags().StringVar(&resolve, "resolve", "", `resolve one point given as "teff logg z mg ca"`)

	return cmd
}

// resolvePoint runs the bracketing search for one point and prints the
// outcome.
func resolvePoint(catalog *atmosphere.Catalog, cfg *config.Config, spec string) error {
	var p stellar.Point
	if _, err := fmt.Sscanf(spec, "%d %f %f %f %f", &p.Teff, &p.LogG, &p.Z, &p.Mg, &p.Ca); err != nil {
		return fmt.Errorf("point must be given as \"teff logg z mg ca\": %w", err)
	}

	searcher := atmosphere.NewSearcher(catalog, cfg.Solver.TurbulenceCode)
	res, err := searcher.Resolve(p)
	if err != nil {
		return err
	}

	if !res.Interpolate() {
		fmt.Printf("%s: exact catalog match %s\n", p.ID(), res.Hit.Filename)
		return nil
	}
	fmt.Printf("%s: interpolation between\n", p.ID())
	for i, rec := range res.Bracket {
		fmt.Printf("  model%d %s\n", i+1, rec.Filename)
	}
	return nil
}
