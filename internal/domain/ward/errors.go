package ward

import "errors"

// Lifecycle errors. Handlers map these onto HTTP statuses; anything
// else is treated as a storage fault.
var (
	ErrBedNotFound     = errors.New("bed not found")
	ErrWardNotFound    = errors.New("ward not found")
	ErrBedNotAvailable = errors.New("bed is not available")
	ErrBedNotOccupied  = errors.New("bed is not occupied")
	ErrInvalidTransfer = errors.New("source and target beds must be distinct")

	// ErrStatusConflict is returned by TransitionStatus when the stored
	// status no longer matches the expected one. Callers translate it
	// into the precondition error appropriate for their operation.
	ErrStatusConflict = errors.New("bed status changed concurrently")
)
