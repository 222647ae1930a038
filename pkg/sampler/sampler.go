// Package sampler produces the ordered set of target stellar parameter
// points for a run: read from a table, drawn at random under
// minimum-separation constraints, or laid out as an evenly spaced grid.
package sampler

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/stellarsynth/stellarsynth/pkg/config"
	"github.com/stellarsynth/stellarsynth/pkg/stellar"
)

// Minimum separation per dimension. Two points "fully collide" only when
// every dimension of one is within its delta of the same other point; a
// candidate that clears any single dimension is accepted.
const (
	MinDeltaTeff      = 5
	MinDeltaLogG      = 0.05
	MinDeltaZ         = 0.001
	MinDeltaAbundance = 0.001
)

// defaultAttemptsPerPoint bounds the rejection loop: random mode gives up
// after Count*defaultAttemptsPerPoint draws unless configured otherwise.
const defaultAttemptsPerPoint = 1000

// InfeasibleError reports that random-mode sampling exhausted its attempt
// budget before reaching the requested count. The bounds are too tight for
// the requested number of points at the configured separations.
type InfeasibleError struct {
	Requested int
	Accepted  int
	Attempts  int
}

// Error implements the error interface.
func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("sampling infeasible: accepted %d of %d points after %d attempts",
		e.Accepted, e.Requested, e.Attempts)
}

// Sampler generates target points according to the run configuration. The
// random source is explicit so a seeded run reproduces its point set
// exactly.
type Sampler struct {
	cfg  config.SamplingConfig
	file string
	rng  *rand.Rand

	// OnAttempt, when set, is called once per random-mode candidate draw,
	// accepted or rejected.
	OnAttempt func()
}

// New creates a sampler. parameterFile is only consulted in file mode. A
// zero seed in the configuration falls back to the current time.
func New(cfg config.SamplingConfig, parameterFile string) *Sampler {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{
		cfg:  cfg,
		file: parameterFile,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Generate produces the run's point set for the configured mode.
func (s *Sampler) Generate() ([]stellar.Point, error) {
	switch s.cfg.Mode {
	case "file":
		return ReadPointsFile(s.file)
	case "random":
		return s.random()
	case "grid":
		return s.grid(), nil
	default:
		return nil, fmt.Errorf("unknown sampling mode %q", s.cfg.Mode)
	}
}

// random draws candidate points uniformly within the configured bounds and
// accepts each one unless it fully collides with an already accepted point.
// The loop is bounded; running out of attempts surfaces an InfeasibleError
// instead of spinning forever on over-constrained bounds.
func (s *Sampler) random() ([]stellar.Point, error) {
	maxAttempts := s.cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = s.cfg.Count * defaultAttemptsPerPoint
	}

	accepted := make([]stellar.Point, 0, s.cfg.Count)
	for attempts := 0; len(accepted) < s.cfg.Count; attempts++ {
		if attempts >= maxAttempts {
			return nil, &InfeasibleError{
				Requested: s.cfg.Count,
				Accepted:  len(accepted),
				Attempts:  attempts,
			}
		}

		if s.OnAttempt != nil {
			s.OnAttempt()
		}
		candidate := stellar.Point{
			Teff: s.cfg.Teff.Min + s.rng.Intn(s.cfg.Teff.Max-s.cfg.Teff.Min+1),
			LogG: s.uniform(s.cfg.LogG, stellar.PrecisionLogG),
			Z:    s.uniform(s.cfg.Z, stellar.PrecisionZ),
			Mg:   s.uniform(s.cfg.Mg, stellar.PrecisionAbundance),
			Ca:   s.uniform(s.cfg.Ca, stellar.PrecisionAbundance),
		}
		if !collides(candidate, accepted) {
			accepted = append(accepted, candidate)
		}
	}
	return accepted, nil
}

func (s *Sampler) uniform(r config.Range, places int) float64 {
	v := r.Min + s.rng.Float64()*(r.Max-r.Min)
	return stellar.RoundTo(v, places)
}

// collides reports whether the candidate is within the minimum delta of an
// existing point on every dimension simultaneously. Agreement on a subset
// of dimensions never rejects a candidate.
func collides(candidate stellar.Point, accepted []stellar.Point) bool {
	for _, p := range accepted {
		if math.Abs(float64(candidate.Teff-p.Teff)) < MinDeltaTeff &&
			math.Abs(candidate.LogG-p.LogG) < MinDeltaLogG &&
			math.Abs(candidate.Z-p.Z) < MinDeltaZ &&
			math.Abs(candidate.Mg-p.Mg) < MinDeltaAbundance &&
			math.Abs(candidate.Ca-p.Ca) < MinDeltaAbundance {
			return true
		}
	}
	return false
}

// grid generates the full Cartesian product of evenly spaced values per
// dimension, each rounded to its display precision. Grid points are
// pairwise distinct by construction, so no collision filtering applies.
func (s *Sampler) grid() []stellar.Point {
	teffs := linspace(float64(s.cfg.Teff.Min), float64(s.cfg.Teff.Max), s.cfg.Grid.Teff)
	loggs := linspace(s.cfg.LogG.Min, s.cfg.LogG.Max, s.cfg.Grid.LogG)
	zs := linspace(s.cfg.Z.Min, s.cfg.Z.Max, s.cfg.Grid.Z)
	mgs := linspace(s.cfg.Mg.Min, s.cfg.Mg.Max, s.cfg.Grid.Mg)
	cas := linspace(s.cfg.Ca.Min, s.cfg.Ca.Max, s.cfg.Grid.Ca)

	points := make([]stellar.Point, 0, len(teffs)*len(loggs)*len(zs)*len(mgs)*len(cas))
	for _, teff := range teffs {
		for _, logg := range loggs {
			for _, z := range zs {
				for _, mg := range mgs {
					for _, ca := range cas {
						points = append(points, stellar.Point{
							Teff: int(math.Round(teff)),
							LogG: stellar.RoundTo(logg, stellar.PrecisionLogG),
							Z:    stellar.RoundTo(z, stellar.PrecisionZ),
							Mg:   stellar.RoundTo(mg, stellar.PrecisionAbundance),
							Ca:   stellar.RoundTo(ca, stellar.PrecisionAbundance),
						})
					}
				}
			}
		}
	}
	return points
}

// linspace returns n evenly spaced values over [min, max], inclusive of
// both ends. n of 1 yields the lower bound.
func linspace(min, max float64, n int) []float64 {
	if n <= 1 {
		return []float64{min}
	}
	step := (max - min) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = min + float64(i)*step
	}
	out[n-1] = max
	return out
}
