// Package atmosphere parses directories of precomputed MARCS model
// atmospheres and locates the records needed to serve an arbitrary target
// point: either an exact catalog hit or the eight grid corners bracketing
// the point for interpolation.
package atmosphere

import (
	"fmt"
	"regexp"
	"strconv"
)

// filenamePattern matches the MARCS plane-parallel naming convention:
//
//	p<teff>_g<logg>_m<mass>_t<turbulence>_st_z<z>_a<alpha>_c..._n..._o..._r..._s....mod
//
// where logg, z and alpha are sign-prefixed fixed-decimal reals and the
// turbulence code is two digits. The raw string forms are kept so filenames
// can be reconstructed verbatim for the interpolator script.
var filenamePattern = regexp.MustCompile(
	`^p(\d+)_g([+-]\d+\.\d+)_m([\d.]+)_t(\d{2})_st_z([+-]\d+\.\d+)_a([+-]\d+\.\d+)_c[+-]?[\d.]+_n[+-]?[\d.]+_o[+-]?[\d.]+_r[+-]?[\d.]+_s[+-]?[\d.]+\.mod$`)

// Record is one model atmosphere parsed from a catalog filename. Records
// are created once at catalog build time and never mutated.
type Record struct {
	Teff  int
	LogG  float64
	Z     float64
	Alpha float64

	// Raw string forms as they appeared in the filename. The interpolator
	// script reassembles filenames from these, so they must survive
	// parsing byte for byte.
	TeffStr  string
	LogGStr  string
	ZStr     string
	AlphaStr string

	// Turbulence is the two-digit microturbulence code ("01", "02", ...).
	Turbulence string

	// Filename is the original catalog filename.
	Filename string
}

// ParseFilename parses a model atmosphere filename into a Record. It
// returns false if the name does not follow the catalog grammar; such
// files are not part of the grid and are skipped without error.
func ParseFilename(name string) (Record, bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return Record{}, false
	}

	teff, err := strconv.Atoi(m[1])
	if err != nil {
		return Record{}, false
	}
	logg, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Record{}, false
	}
	z, err := strconv.ParseFloat(m[5], 64)
	if err != nil {
		return Record{}, false
	}
	alpha, err := strconv.ParseFloat(m[6], 64)
	if err != nil {
		return Record{}, false
	}

	return Record{
		Teff:       teff,
		LogG:       logg,
		Z:          z,
		Alpha:      alpha,
		TeffStr:    m[1],
		LogGStr:    m[2],
		ZStr:       m[5],
		AlphaStr:   m[6],
		Turbulence: m[4],
		Filename:   name,
	}, true
}

// FormatFilename composes a catalog filename for the given grid values,
// using the standard-composition defaults for the remaining fields. The
// o (oxygen) field mirrors the alpha value, as it does throughout the
// standard grid. Parsing the result reproduces the input values.
func FormatFilename(teff int, logg, z, alpha float64, turbulence string) string {
	alphaStr := signedStr(alpha, 2)
	return fmt.Sprintf("p%d_g%s_m0.0_t%s_st_z%s_a%s_c+0.00_n+0.00_o%s_r+0.00_s+0.00.mod",
		teff, signedStr(logg, 1), turbulence, signedStr(z, 2), alphaStr, alphaStr)
}

func signedStr(v float64, places int) string {
	if v >= 0 {
		return fmt.Sprintf("+%.*f", places, v)
	}
	return fmt.Sprintf("%.*f", places, v)
}
