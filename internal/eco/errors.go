package eco

import "errors"

// Contract violations. These are programmer errors: the engine panics with an
// error wrapping one of them instead of corrupting the grid.
var (
	ErrOutOfBounds = errors.New("location out of bounds")
	ErrOccupied    = errors.New("cell already occupied")
	ErrDetached    = errors.New("animal is not attached to a field")
)
