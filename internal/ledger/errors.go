package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuantity is returned when a reservation or resize asks for
	// fewer than one unit.
	ErrInvalidQuantity = errors.New("ledger: quantity must be at least 1")

	// ErrContention is returned when the pool lock could not be acquired
	// within the configured bound.  Callers may retry.
	ErrContention = errors.New("ledger: pool is busy, try again")

	// ErrPoolNotFound and ErrRecordNotFound are returned by stores when the
	// referenced row does not exist.
	ErrPoolNotFound   = errors.New("ledger: pool not found")
	ErrRecordNotFound = errors.New("ledger: record not found")

	// ErrCapacityInUse is returned by Resize when the new total is below
	// the quantity held by active records.
	ErrCapacityInUse = errors.New("ledger: capacity is held by active records")

	// ErrOverflow signals a crediting that would push remaining above
	// total.  It only happens when stored rows are already inconsistent.
	ErrOverflow = errors.New("ledger: remaining would exceed total")
)

// InsufficientCapacityError reports that a pool cannot satisfy a request.
// Available carries the remaining count observed under the pool lock.
type InsufficientCapacityError struct {
	Pool      PoolKey
	Requested int
	Available int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("ledger: %s has %d %s available, %d requested",
		e.Pool, e.Available, e.Pool.Kind.Unit(), e.Requested)
}

// InvalidTransitionError reports a status change missing from the
// transition table.  Current is the state the record was found in.
type InvalidTransitionError struct {
	Current Status
	Target  Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("ledger: cannot move record from %s to %s", e.Current, e.Target)
}

// IsRejection reports whether err is a user-correctable ledger outcome
// rather than an infrastructure failure.
func IsRejection(err error) bool {
	var ic *InsufficientCapacityError
	var it *InvalidTransitionError
	switch {
	case errors.As(err, &ic), errors.As(err, &it):
		return true
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrContention),
		errors.Is(err, ErrPoolNotFound),
		errors.Is(err, ErrRecordNotFound),
		errors.Is(err, ErrCapacityInUse):
		return true
	}
	return false
}
