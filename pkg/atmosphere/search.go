package atmosphere

import (
	"math"
	"sort"

	"github.com/stellarsynth/stellarsynth/pkg/stellar"
)

// compareTolerance is the number of decimal places differences are rounded
// to before comparison. A single physical grid value must not split into
// two groups because of float noise, so "closest" is decided on rounded
// differences and every record tied at the rounded minimum stays in play
// for the next narrowing step.
const compareTolerance = 3

// BracketingSet holds the eight records enclosing a target point, in the
// fixed corner order the interpolator expects:
//
//	0: teff_lo logg_lo z_lo    4: teff_hi logg_lo z_lo
//	1: teff_lo logg_lo z_hi    5: teff_hi logg_lo z_hi
//	2: teff_lo logg_hi z_lo    6: teff_hi logg_hi z_lo
//	3: teff_lo logg_hi z_hi    7: teff_hi logg_hi z_hi
type BracketingSet [8]Record

// Low returns the lower-corner record (teff_lo, logg_lo, z_lo).
func (b BracketingSet) Low() Record { return b[0] }

// High returns the upper-corner record (teff_hi, logg_hi, z_hi).
func (b BracketingSet) High() Record { return b[7] }

// Resolution is the outcome of resolving a target point against the
// catalog: exactly one of Hit and Bracket is set.
type Resolution struct {
	// Hit is the record matching the point exactly, if one exists.
	Hit *Record

	// Bracket holds the eight enclosing records when interpolation is
	// needed.
	Bracket *BracketingSet
}

// Interpolate reports whether the point needs interpolation.
func (r *Resolution) Interpolate() bool {
	return r.Bracket != nil
}

// Searcher resolves target points against a catalog, considering only
// records with the configured microturbulence code. A Searcher is
// stateless beyond its inputs and safe for concurrent use.
type Searcher struct {
	catalog    *Catalog
	turbulence string
}

// NewSearcher creates a searcher over the catalog for one microturbulence
// code.
func NewSearcher(catalog *Catalog, turbulence string) *Searcher {
	return &Searcher{catalog: catalog, turbulence: turbulence}
}

// Resolve locates the atmosphere source for a target point. If a record
// matches the point exactly (teff, logg, z, implied alpha and turbulence
// code) the resolution is a catalog hit; more than one exact match is an
// AmbiguousMatchError. Otherwise the eight bracketing corners are located,
// or a MissingBracketError identifies the axis and side the catalog cannot
// cover.
func (s *Searcher) Resolve(p stellar.Point) (*Resolution, error) {
	working := s.catalog.WithTurbulence(s.turbulence)

	exact := exactMatches(working, p)
	if len(exact) > 1 {
		names := make([]string, len(exact))
		for i, rec := range exact {
			names[i] = rec.Filename
		}
		return nil, &AmbiguousMatchError{Count: len(exact), Filenames: names}
	}
	if len(exact) == 1 {
		rec := exact[0]
		return &Resolution{Hit: &rec}, nil
	}

	set, err := s.bracket(working, p)
	if err != nil {
		return nil, err
	}
	return &Resolution{Bracket: set}, nil
}

// exactMatches filters to records equal to the point on every axis, with
// alpha derived from the point's own metallicity. Equality is taken at the
// comparison tolerance.
func exactMatches(records []Record, p stellar.Point) []Record {
	alpha := p.Alpha()
	var out []Record
	for _, rec := range records {
		if rec.Teff == p.Teff &&
			roundedDiff(rec.LogG, p.LogG) == 0 &&
			roundedDiff(rec.Z, p.Z) == 0 &&
			roundedDiff(rec.Alpha, alpha) == 0 {
			out = append(out, rec)
		}
	}
	return out
}

// bracket narrows the working set axis by axis. Each step keeps every
// record at the closest grid value on that side, so ties propagate into
// the next step and are only broken per corner at the end.
func (s *Searcher) bracket(working []Record, p stellar.Point) (*BracketingSet, error) {
	teffSides, err := narrowBothSides(working, "teff", float64(p.Teff))
	if err != nil {
		return nil, err
	}

	var set BracketingSet
	corner := 0
	for _, teffSide := range teffSides {
		loggSides, err := narrowBothSides(teffSide, "logg", p.LogG)
		if err != nil {
			return nil, err
		}
		for _, loggSide := range loggSides {
			zSides, err := narrowBothSides(loggSide, "z", p.Z)
			if err != nil {
				return nil, err
			}
			for _, zSide := range zSides {
				set[corner] = pickByAlpha(zSide)
				corner++
			}
		}
	}
	return &set, nil
}

// narrowBothSides returns the candidate sets at the closest grid value
// strictly below and strictly above the target, in that order.
func narrowBothSides(records []Record, dimension string, target float64) ([2][]Record, error) {
	var sides [2][]Record
	lower, err := narrow(records, dimension, target, DirectionLower)
	if err != nil {
		return sides, err
	}
	higher, err := narrow(records, dimension, target, DirectionHigher)
	if err != nil {
		return sides, err
	}
	sides[0] = lower
	sides[1] = higher
	return sides, nil
}

// narrow keeps the records strictly on one side of the target along the
// given axis, then reduces them to those at the closest value. An empty
// side means the catalog cannot bracket the target there.
func narrow(records []Record, dimension string, target float64, dir Direction) ([]Record, error) {
	var side []Record
	for _, rec := range records {
		v := axisValue(rec, dimension)
		if (dir == DirectionLower && v < target) || (dir == DirectionHigher && v > target) {
			side = append(side, rec)
		}
	}
	if len(side) == 0 {
		return nil, &MissingBracketError{Dimension: dimension, Direction: dir, Target: target}
	}
	return closest(side, dimension, target), nil
}

// closest keeps every record whose rounded distance to the target equals
// the rounded minimum.
func closest(records []Record, dimension string, target float64) []Record {
	min := math.Inf(1)
	for _, rec := range records {
		if d := roundedDiff(axisValue(rec, dimension), target); d < min {
			min = d
		}
	}
	var out []Record
	for _, rec := range records {
		if roundedDiff(axisValue(rec, dimension), target) == min {
			out = append(out, rec)
		}
	}
	return out
}

// pickByAlpha selects one record from a fully narrowed corner. The corner's
// expected alpha is derived from its own resolved z, not the original
// target z. A record with exactly that alpha wins; failing that, the
// record(s) closest in alpha remain and the lexicographically smallest
// filename breaks any remaining tie, keeping the choice independent of
// directory listing order.
func pickByAlpha(corner []Record) Record {
	want := stellar.Alpha(corner[0].Z)

	best := math.Inf(1)
	for _, rec := range corner {
		if d := roundedDiff(rec.Alpha, want); d < best {
			best = d
		}
	}
	candidates := make([]Record, 0, len(corner))
	for _, rec := range corner {
		if roundedDiff(rec.Alpha, want) == best {
			candidates = append(candidates, rec)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Filename < candidates[j].Filename
	})
	return candidates[0]
}

func axisValue(rec Record, dimension string) float64 {
	switch dimension {
	case "teff":
		return float64(rec.Teff)
	case "logg":
		return rec.LogG
	default:
		return rec.Z
	}
}

func roundedDiff(a, b float64) float64 {
	return stellar.RoundTo(math.Abs(a-b), compareTolerance)
}
