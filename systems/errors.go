package systems

import "errors"

// Error kinds raised by the spatial core. Callers match them with errors.Is.
var (
	// ErrInvalidBounds marks a NaN, infinite or inverted AABB. The entity is skipped.
	ErrInvalidBounds = errors.New("invalid bounds")

	// ErrOutOfBoundsQuery marks a path endpoint outside the grid. Recovered by clamping.
	ErrOutOfBoundsQuery = errors.New("query outside grid")

	// ErrUnreachableDestination marks a search that never reached its goal.
	ErrUnreachableDestination = errors.New("destination unreachable")

	// ErrDegenerateRay marks a ray direction with a near-zero component. Recovered by nudging.
	ErrDegenerateRay = errors.New("degenerate ray direction")

	// ErrUnknownMover marks a mover handle that was never issued or was removed.
	ErrUnknownMover = errors.New("unknown mover")
)
