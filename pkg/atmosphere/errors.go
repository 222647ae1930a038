package atmosphere

import "fmt"

// Direction identifies which side of the target a bracketing step failed on.
type Direction string

const (
	DirectionLower  Direction = "lower"
	DirectionHigher Direction = "higher"
)

// MissingBracketError reports that the catalog holds no record on one side
// of the target along one axis. The job cannot be interpolated; the target
// lies outside the grid's coverage on that axis.
type MissingBracketError struct {
	// Dimension is the axis that could not be bracketed: "teff", "logg"
	// or "z".
	Dimension string

	// Direction says whether the lower or the higher side was empty.
	Direction Direction

	// Target is the value that needed bracketing.
	Target float64
}

// Error implements the error interface.
func (e *MissingBracketError) Error() string {
	return fmt.Sprintf("no model with %s value %s than %g in catalog",
		e.Dimension, e.Direction, e.Target)
}

// Is reports dimension/direction equality so tests can match with errors.Is.
func (e *MissingBracketError) Is(target error) bool {
	t, ok := target.(*MissingBracketError)
	if !ok {
		return false
	}
	return e.Dimension == t.Dimension && e.Direction == t.Direction
}

// AmbiguousMatchError reports that more than one catalog record matches the
// target point exactly. This is a data-quality problem in the catalog, not
// a coverage gap: the caller cannot know which model to feed the solver.
type AmbiguousMatchError struct {
	// Count is the number of records that matched.
	Count int

	// Filenames lists the colliding records for diagnosis.
	Filenames []string
}

// Error implements the error interface.
func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d catalog records match the target point exactly", e.Count)
}
