// Package stellar defines the stellar parameter types shared by the sampler,
// the atmosphere catalog and the synthesis pipeline.
package stellar

// Alpha returns the alpha-element enhancement [alpha/Fe] implied by the
// overall metallicity z. The mapping follows the convention used by the
// MARCS standard-composition grid:
//
//	z <  -1.0        -> 0.4
//	-1.0 <= z < 0.0  -> -0.4 * z
//	z >= 0.0         -> 0.0
func Alpha(z float64) float64 {
	switch {
	case z < -1.0:
		return 0.4
	case z < 0.0:
		return -0.4 * z
	default:
		return 0.0
	}
}
