package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("storage: record not found")
	ErrDuplicate = errors.New("storage: duplicate record")
	// ErrConflict means a conditional write found the row in another state.
	ErrConflict          = errors.New("storage: state changed concurrently")
	ErrTripUnavailable   = fmt.Errorf("%w: trip not available", ErrConflict)
	ErrInsufficientSeats = errors.New("storage: insufficient seats")
)

// SeatsError reports how many seats were left when a reservation could not
// take the requested amount.
type SeatsError struct {
	Available int
}

func (e *SeatsError) Error() string {
	return fmt.Sprintf("%s: %d available", ErrInsufficientSeats, e.Available)
}

func (e *SeatsError) Is(target error) bool {
	return target == ErrInsufficientSeats
}
