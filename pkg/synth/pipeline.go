package synth

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/stellarsynth/stellarsynth/pkg/atmosphere"
	"github.com/stellarsynth/stellarsynth/pkg/config"
	"github.com/stellarsynth/stellarsynth/pkg/stellar"
	"github.com/stellarsynth/stellarsynth/pkg/stores"
	"github.com/stellarsynth/stellarsynth/pkg/telemetry"
	"github.com/stellarsynth/stellarsynth/pkg/turbospec"
)

// Atomic numbers of the individually varied abundances.
const (
	elementMagnesium = 12
	elementCalcium   = 20
)

// defaultWorkers is the pool size when the configuration leaves it unset.
const defaultWorkers = 4

// Resolver locates the atmosphere source for a target point.
type Resolver interface {
	Resolve(p stellar.Point) (*atmosphere.Resolution, error)
}

// Interpolator prepares and runs per-job atmosphere interpolations.
type Interpolator interface {
	WriteJobScript(p stellar.Point, set *atmosphere.BracketingSet) (script, outPath string, err error)
	Run(ctx context.Context, script, logPath string) error
	RemoveJobScript(script string) error
}

// Solver runs the two external solver stages.
type Solver interface {
	RunOpacity(ctx context.Context, controlPath, logPath string) error
	RunSynthesis(ctx context.Context, controlPath, logPath string) error
}

// Params collects everything a Pipeline needs. Store may be nil to skip
// persistence; a nil Metrics or Logger falls back to defaults.
type Params struct {
	Config    *config.Config
	Resolver  Resolver
	Interp    Interpolator
	Solver    Solver
	LineLists []string

	RunID   string
	Store   stores.Store
	Metrics *telemetry.Metrics
	Logger  *telemetry.Logger
}

// Pipeline executes a batch of synthesis jobs on a fixed worker pool.
// Jobs never share mutable state; each worker owns the job it executes
// and a failed job never stops its siblings.
type Pipeline struct {
	cfg      *config.Config
	resolver Resolver
	interp   Interpolator
	solver   Solver

	lineLists []string
	runID     string

	store   stores.Store
	metrics *telemetry.Metrics
	log     *telemetry.Logger
}

// NewPipeline builds a pipeline from its parameters.
func NewPipeline(p Params) *Pipeline {
	metrics := p.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics(telemetry.DefaultMetricsConfig())
	}
	log := p.Logger
	if log == nil {
		log, _ = telemetry.NewLogger(telemetry.DefaultLoggingConfig())
	}
	return &Pipeline{
		cfg:       p.Config,
		resolver:  p.Resolver,
		interp:    p.Interp,
		solver:    p.Solver,
		lineLists: p.LineLists,
		runID:     p.RunID,
		store:     p.Store,
		metrics:   metrics,
		log:       log.NewComponentLogger("pipeline").WithRunID(p.RunID),
	}
}

// Summary tallies a finished batch.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int

	// Skipped counts jobs never started because the run was cancelled.
	Skipped int

	// ByReason breaks failures down by kind.
	ByReason map[FailureKind]int

	Elapsed time.Duration
}

// Run executes one job per point and blocks until every submitted job is
// terminal. Cancelling the context stops feeding the pool; jobs already
// running finish or fail on their own, and unfed jobs stay pending and
// are reported as skipped.
func (pl *Pipeline) Run(ctx context.Context, points []stellar.Point) (*Summary, []*Job, error) {
	start := time.Now()

	jobs := make([]*Job, len(points))
	for i, p := range points {
		jobs[i] = NewJob(p, pl.cfg.Paths.Output)
	}
	if err := pl.persistPending(ctx, jobs); err != nil {
		return nil, nil, err
	}

	workers := pl.cfg.Run.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	pl.log.Info().
		Int("points", len(points)).
		Int("workers", workers).
		Msg("starting synthesis batch")

	queue := make(chan *Job)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				pl.execute(ctx, job)
			}
		}()
	}

feed:
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case queue <- job:
		}
	}
	close(queue)
	wg.Wait()

	summary := pl.summarize(jobs)
	summary.Elapsed = time.Since(start)
	pl.log.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Dur("elapsed", summary.Elapsed).
		Msg("synthesis batch finished")
	return summary, jobs, nil
}

// execute runs one job to a terminal state. A panic inside the job is
// contained here and recorded as a failure, so one bad job cannot take
// down the pool.
func (pl *Pipeline) execute(ctx context.Context, job *Job) {
	log := pl.log.WithJob(job.ID)
	job.StartedAt = time.Now()
	pl.metrics.JobStarted()
	log.Debug().Msg("job started")

	defer func() {
		if r := recover(); r != nil {
			job.fail(fmt.Errorf("job panicked: %v", r))
		}
		pl.finish(ctx, job, log)
	}()

	if err := pl.runJob(ctx, job); err != nil {
		job.fail(err)
		return
	}
	job.succeed()
}

// runJob is the per-job sequence: resolve, interpolate if needed, write
// control files, run both solver stages.
func (pl *Pipeline) runJob(ctx context.Context, job *Job) error {
	res, err := pl.resolver.Resolve(job.Point)
	if err != nil {
		return err
	}

	if res.Interpolate() {
		job.Status = StatusInterpolating
		script, outPath, err := pl.interp.WriteJobScript(job.Point, res.Bracket)
		if err != nil {
			return &turbospec.InterpolatorError{Err: err}
		}
		start := time.Now()
		if err := pl.interp.Run(ctx, script, job.Context.LogPath); err != nil {
			return err
		}
		pl.metrics.ObserveStage("interpolate", time.Since(start))
		if !pl.cfg.Run.KeepTemp {
			_ = pl.interp.RemoveJobScript(script)
		}
		job.Interpolated = true
		job.Atmosphere = outPath
	} else {
		job.Atmosphere = filepath.Join(pl.cfg.Paths.ModelAtmospheres, res.Hit.Filename)
	}

	controls := &turbospec.ControlFiles{
		LambdaMin:   pl.cfg.Wavelength.Min,
		LambdaMax:   pl.cfg.Wavelength.Max,
		LambdaStep:  pl.cfg.Wavelength.Step,
		Metallicity: job.Point.Z,
		Alpha:       job.Point.Alpha(),
		Abundances: []turbospec.Abundance{
			{Element: elementMagnesium, Value: job.Point.Mg},
			{Element: elementCalcium, Value: job.Point.Ca},
		},
		AtmospherePath: job.Atmosphere,
		MarcsFile:      !job.Interpolated,
		OpacityPath:    job.Context.OpacityPath,
		ResultPath:     job.Context.ResultPath,
		LineLists:      pl.lineLists,
		XiFix:          pl.cfg.Solver.XiFix,
	}
	if err := controls.WriteOpacity(job.Context.OpacityControlPath); err != nil {
		return &turbospec.SolverError{Stage: turbospec.StageOpacity, Err: err}
	}
	if err := controls.WriteSynthesis(job.Context.SynthesisControlPath); err != nil {
		return &turbospec.SolverError{Stage: turbospec.StageSynthesis, Err: err}
	}
	job.Status = StatusControlFilesGenerated

	job.Status = StatusSolverRunning
	start := time.Now()
	if err := pl.solver.RunOpacity(ctx, job.Context.OpacityControlPath, job.Context.LogPath); err != nil {
		return err
	}
	pl.metrics.ObserveStage("babsma", time.Since(start))

	start = time.Now()
	if err := pl.solver.RunSynthesis(ctx, job.Context.SynthesisControlPath, job.Context.LogPath); err != nil {
		return err
	}
	pl.metrics.ObserveStage("bsyn", time.Since(start))
	return nil
}

// finish records a terminal (or abandoned) job in metrics, the store and
// the log.
func (pl *Pipeline) finish(ctx context.Context, job *Job, log *telemetry.Logger) {
	switch job.Status {
	case StatusSuccess:
		pl.metrics.JobCompleted("success", "")
		log.Info().
			Str("spectrum", job.Context.ResultPath).
			Bool("interpolated", job.Interpolated).
			Msg("job succeeded")
	case StatusFailed:
		kind := ClassifyFailure(job.Err)
		pl.metrics.JobCompleted("failed", string(kind))
		log.WithError(job.Err).Error().
			Str("reason", string(kind)).
			Msg("job failed")
	default:
		// Non-terminal after execute means the job was abandoned
		// mid-flight; record it as failed.
		job.fail(fmt.Errorf("job abandoned in state %s", job.Status))
		pl.metrics.JobCompleted("failed", string(FailureInternal))
	}
	pl.persistTerminal(ctx, job)
}

// summarize tallies terminal states after the pool drains.
func (pl *Pipeline) summarize(jobs []*Job) *Summary {
	summary := &Summary{
		RunID:    pl.runID,
		Total:    len(jobs),
		ByReason: make(map[FailureKind]int),
	}
	for _, job := range jobs {
		switch job.Status {
		case StatusSuccess:
			summary.Succeeded++
		case StatusFailed:
			summary.Failed++
			summary.ByReason[ClassifyFailure(job.Err)]++
		default:
			summary.Skipped++
		}
	}
	return summary
}

// persistPending writes the initial job rows. Store errors here are fatal:
// a run that cannot record its jobs should not start burning solver time.
func (pl *Pipeline) persistPending(ctx context.Context, jobs []*Job) error {
	if pl.store == nil {
		return nil
	}
	for _, job := range jobs {
		if err := pl.store.CreateJob(ctx, pl.storeJob(job)); err != nil {
			return fmt.Errorf("recording job %s: %w", job.ID, err)
		}
	}
	return nil
}

// persistTerminal updates a job row with its outcome. Store errors after
// the job already ran are logged, not propagated.
func (pl *Pipeline) persistTerminal(ctx context.Context, job *Job) {
	if pl.store == nil {
		return
	}
	if err := pl.store.UpdateJob(ctx, pl.storeJob(job)); err != nil {
		pl.log.WithError(err).Warn().
			Str("job", job.ID).
			Msg("failed to persist job outcome")
	}
}

// storeJob converts a job to its persistence shape.
func (pl *Pipeline) storeJob(job *Job) *stores.Job {
	rec := &stores.Job{
		ID:           job.ID,
		RunID:        pl.runID,
		Teff:         job.Point.Teff,
		LogG:         job.Point.LogG,
		Z:            job.Point.Z,
		Mg:           job.Point.Mg,
		Ca:           job.Point.Ca,
		Status:       stores.JobStatusPending,
		Interpolated: job.Interpolated,
		Atmosphere:   job.Atmosphere,
		LogPath:      job.Context.LogPath,
	}
	if !job.StartedAt.IsZero() {
		t := job.StartedAt
		rec.StartedAt = &t
	}
	if !job.CompletedAt.IsZero() {
		t := job.CompletedAt
		rec.CompletedAt = &t
	}
	switch job.Status {
	case StatusSuccess:
		rec.Status = stores.JobStatusSuccess
	case StatusFailed:
		rec.Status = stores.JobStatusFailed
		reason := fmt.Sprintf("%s: %v", ClassifyFailure(job.Err), job.Err)
		rec.Reason = &reason
	}
	return rec
}
