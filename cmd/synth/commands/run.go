package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stellarsynth/stellarsynth/pkg/atmosphere"
	"github.com/stellarsynth/stellarsynth/pkg/config"
	"github.com/stellarsynth/stellarsynth/pkg/sampler"
	"github.com/stellarsynth/stellarsynth/pkg/stellar"
	"github.com/stellarsynth/stellarsynth/pkg/stores"
	"github.com/stellarsynth/stellarsynth/pkg/synth"
	"github.com/stellarsynth/stellarsynth/pkg/telemetry"
	"github.com/stellarsynth/stellarsynth/pkg/turbospec"
)

func newRunCommand() *cobra.Command {
	var (
		dryRun      bool
		skipCompile bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch synthesis",
		Long: `Run a full batch synthesis from the configuration file.

The command samples the target points, resolves a model atmosphere for each
one (interpolating where the catalog has no exact match), runs the two-stage
solver per point, and writes one spectrum per successful job into the output
directory. Individual job failures are recorded and do not stop the batch.`,
		Example: `  # Run with the default config file
  synth run

  # Sample and resolve without invoking the toolchain
  synth run --dry-run

  # Reuse existing toolchain binaries
  synth run --skip-compile`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if skipCompile {
				cfg.Solver.SkipCompile = true
			}
			return runBatch(cmd.Context(), cfg, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "sample and resolve atmospheres without running the toolchain")
	cmd.Flags().BoolVar(&skipCompile, "skip-compile", false, "assume the solver and interpolator are already built")

	return cmd
}

func runBatch(ctx context.Context, cfg *config.Config, dryRun bool) error {
	log, err := newCommandLogger()
	if err != nil {
		return err
	}
	runID := uuid.New().String()
	log = log.WithRunID(runID)

	workspace := &synth.Workspace{OutputDir: cfg.Paths.Output}
	if err := workspace.Setup(); err != nil {
		return err
	}
	if err := workspace.CopyConfig(configPath); err != nil {
		return err
	}

	metrics := newRunMetrics(cfg)
	metrics.Serve()
	defer metrics.Shutdown()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	// Setup log shared by the compile and install steps.
	setupLog := filepath.Join(cfg.Paths.Output, "logs", "setup.log")

	solver := turbospec.NewSolver(cfg.Paths.Turbospectrum, cfg.Solver.Compiler)
	interp := &turbospec.Interpolator{
		Dir:       cfg.Paths.Interpolator,
		ModelDir:  cfg.Paths.ModelAtmospheres,
		OutputDir: workspace.TempDir(),
	}
	if !dryRun && !cfg.Solver.SkipCompile {
		log.Info().Str("compiler", cfg.Solver.Compiler).Msg("compiling toolchain")
		if err := solver.Compile(ctx, setupLog); err != nil {
			return err
		}
		if err := interp.Compile(ctx, fortranCompiler(cfg.Solver.Compiler), setupLog); err != nil {
			return err
		}
	}
	if err := interp.InstallTemplate(); err != nil {
		return err
	}

	catalog, err := atmosphere.BuildCatalog(cfg.Paths.ModelAtmospheres)
	if err != nil {
		return err
	}
	metrics.SetCatalogSize(catalog.Len())
	log.Info().Int("records", catalog.Len()).Msg("catalog built")

	smp := sampler.New(cfg.Sampling, cfg.Paths.ParameterFile)
	smp.OnAttempt = metrics.SamplerAttempt
	points, err := smp.Generate()
	if err != nil {
		return err
	}
	pointsPath := filepath.Join(cfg.Paths.Output, "generated_parameters.txt")
	if err := sampler.WritePointsFile(pointsPath, points); err != nil {
		return err
	}
	log.Info().Int("points", len(points)).Str("mode", cfg.Sampling.Mode).Msg("points sampled")

	if dryRun {
		return dryRunResolve(cfg, catalog, points, log)
	}

	lineLists, err := turbospec.CollectLineLists(cfg.Paths.Linelists)
	if err != nil {
		return err
	}

	run := &stores.Run{
		ID:         runID,
		ConfigPath: configPath,
		Status:     stores.RunStatusRunning,
		Points:     len(points),
		StartedAt:  time.Now(),
	}
	if store != nil {
		if err := store.CreateRun(ctx, run); err != nil {
			return err
		}
	}

	pipeline := synth.NewPipeline(synth.Params{
		Config:    cfg,
		Resolver:  atmosphere.NewSearcher(catalog, cfg.Solver.TurbulenceCode),
		Interp:    interp,
		Solver:    solver,
		LineLists: lineLists,
		RunID:     runID,
		Store:     store,
		Metrics:   metrics,
		Logger:    log,
	})
	summary, _, err := pipeline.Run(ctx, points)
	if err != nil {
		return err
	}

	if store != nil {
		now := time.Now()
		run.Status = runStatus(summary)
		run.Succeeded = summary.Succeeded
		run.Failed = summary.Failed
		run.CompletedAt = &now
		if err := store.FinishRun(ctx, run); err != nil {
			log.WithError(err).Warn().Msg("failed to persist run outcome")
		}
	}

	if !cfg.Run.KeepTemp {
		if err := workspace.CleanTemp(); err != nil {
			log.WithError(err).Warn().Msg("failed to clean temp directory")
		}
	}

	printSummary(summary)
	if summary.Succeeded == 0 && summary.Total > 0 {
		return fmt.Errorf("all %d jobs failed", summary.Total)
	}
	return nil
}

// dryRunResolve reports, without running any external tool, which points
// would hit the catalog, which would interpolate, and which cannot be
// bracketed.
func dryRunResolve(cfg *config.Config, catalog *atmosphere.Catalog, points []stellar.Point, log *telemetry.Logger) error {
	searcher := atmosphere.NewSearcher(catalog, cfg.Solver.TurbulenceCode)
	var hits, interpolations, unresolvable int
	for _, p := range points {
		res, err := searcher.Resolve(p)
		if err != nil {
			unresolvable++
			log.WithError(err).Warn().Str("point", p.ID()).Msg("cannot resolve atmosphere")
			continue
		}
		if res.Interpolate() {
			interpolations++
		} else {
			hits++
		}
	}
	fmt.Printf("Dry run: %d points, %d catalog hits, %d need interpolation, %d unresolvable\n",
		len(points), hits, interpolations, unresolvable)
	return nil
}

// fortranCompiler maps the configured solver flavor onto the Fortran
// compiler command used to build the interpolator.
func fortranCompiler(compiler string) string {
	if compiler == "intel" {
		return "ifort"
	}
	return "gfortran"
}

// runStatus maps a finished summary onto the stored run status.
func runStatus(s *synth.Summary) stores.RunStatus {
	switch {
	case s.Failed == 0 && s.Skipped == 0:
		return stores.RunStatusCompleted
	case s.Succeeded > 0:
		return stores.RunStatusPartial
	default:
		return stores.RunStatusFailed
	}
}

// openStore opens and migrates the run store when one is configured.
func openStore(ctx context.Context, cfg *config.Config) (stores.Store, error) {
	if cfg.Run.StorePath == "" {
		return nil, nil
	}
	store, err := stores.NewSQLiteStore(cfg.Run.StorePath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// newRunMetrics enables exposition only when a listen address is set.
func newRunMetrics(cfg *config.Config) *telemetry.Metrics {
	mcfg := telemetry.DefaultMetricsConfig()
	if cfg.Run.MetricsListen != "" {
		mcfg.Enabled = true
		mcfg.ListenAddress = cfg.Run.MetricsListen
	}
	return telemetry.NewMetrics(mcfg)
}

// newCommandLogger builds the structured logger from the global flags.
func newCommandLogger() (*telemetry.Logger, error) {
	lcfg := telemetry.DefaultLoggingConfig()
	if verbose {
		lcfg.Level = "debug"
	}
	if jsonOutput {
		lcfg.Format = "json"
	}
	return telemetry.NewLogger(lcfg)
}

// printSummary writes the batch outcome to stdout.
func printSummary(s *synth.Summary) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(s)
		return
	}
	fmt.Printf("Run %s: %d points, %d succeeded, %d failed", s.RunID, s.Total, s.Succeeded, s.Failed)
	if s.Skipped > 0 {
		fmt.Printf(", %d skipped", s.Skipped)
	}
	fmt.Printf(" (%s)\n", s.Elapsed.Round(time.Millisecond))
	for kind, n := range s.ByReason {
		fmt.Printf("  %-20s %d\n", kind, n)
	}
}
