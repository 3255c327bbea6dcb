package round

import "errors"

var (
	// ErrNotFound is returned when the round or participation does not exist
	ErrNotFound = errors.New("round not found")
	// ErrActiveRoundExists is returned when creation loses the race for the single active slot
	ErrActiveRoundExists = errors.New("an active round already exists")
	// ErrForbidden is returned when the caller does not own the player or is not in the round
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument is returned for out-of-range metrics
	ErrInvalidArgument = errors.New("invalid argument")
)
