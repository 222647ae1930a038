package stellar

import (
	"fmt"
	"math"
)

// Precision of each dimension in decimal places. Values are rounded to this
// precision when generated, and the same granularity is used as the
// collision tolerance in the sampler and the comparison tolerance in the
// bracketing search.
const (
	PrecisionLogG      = 2
	PrecisionZ         = 3
	PrecisionAbundance = 3
)

// Point is a single set of stellar parameters. It is immutable once
// produced by the sampler: the pipeline and the bracketing search only ever
// read it.
type Point struct {
	// Teff is the effective temperature in Kelvin.
	Teff int

	// LogG is the base-10 logarithm of surface gravity, dex.
	LogG float64

	// Z is the overall metallicity [Fe/H], dex.
	Z float64

	// Mg is the magnesium abundance offset, dex.
	Mg float64

	// Ca is the calcium abundance offset, dex.
	Ca float64
}

// Alpha returns the alpha enhancement implied by the point's metallicity.
func (p Point) Alpha() float64 {
	return Alpha(p.Z)
}

// ID returns a deterministic identifier derived from the point's parameter
// values. Control files, scripts and logs for a job are named after this, so
// concurrent jobs never collide on paths as long as the points themselves
// are distinct.
func (p Point) ID() string {
	return fmt.Sprintf("p%d_g%s_z%s_mg%s_ca%s",
		p.Teff,
		FormatSigned(p.LogG, PrecisionLogG),
		FormatSigned(p.Z, PrecisionZ),
		FormatSigned(p.Mg, PrecisionAbundance),
		FormatSigned(p.Ca, PrecisionAbundance),
	)
}

// String implements fmt.Stringer for log output.
func (p Point) String() string {
	return fmt.Sprintf("teff=%d logg=%.2f z=%.3f mg=%.3f ca=%.3f",
		p.Teff, p.LogG, p.Z, p.Mg, p.Ca)
}

// Round returns a copy of the point with every real dimension rounded to its
// display precision.
func (p Point) Round() Point {
	p.LogG = RoundTo(p.LogG, PrecisionLogG)
	p.Z = RoundTo(p.Z, PrecisionZ)
	p.Mg = RoundTo(p.Mg, PrecisionAbundance)
	p.Ca = RoundTo(p.Ca, PrecisionAbundance)
	return p
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// FormatSigned formats v with an explicit sign prefix and a fixed number of
// decimals, the way MARCS filenames encode logg, z and alpha ("+4.0",
// "-0.25"). Negative values already carry their sign from the verb.
func FormatSigned(v float64, places int) string {
	if v >= 0 {
		return fmt.Sprintf("+%.*f", places, v)
	}
	return fmt.Sprintf("%.*f", places, v)
}
