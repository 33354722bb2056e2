package grid

import "fmt"

// InputShapeError is returned when a grid is smaller than the 2x2 minimum
// needed to hold one header row and one identity column.
type InputShapeError struct {
	Rows int
	Cols int
}

func (e *InputShapeError) Error() string {
	return fmt.Sprintf("invalid grid shape: %d rows x %d columns, need at least 2 rows", e.Rows, e.Cols)
}

// MissingDefaultsError is returned when a rule declares no defaults map.
type MissingDefaultsError struct {
	Rule string
}

func (e *MissingDefaultsError) Error() string {
	return fmt.Sprintf("rule %q declares no defaults", e.Rule)
}
