package ledger

import "fmt"

// PoolKind distinguishes the two capacity pools the service books against.
type PoolKind string

const (
	KindRoom PoolKind = "room" // rooms of one type within a hotel
	KindTour PoolKind = "tour" // participant slots of one tour
)

// Unit is the plural noun used when talking to end users about a pool.
func (k PoolKind) Unit() string {
	if k == KindTour {
		return "spots"
	}
	return "rooms"
}

// PoolKey identifies a pool.  It is also the unit of mutual exclusion.
type PoolKey struct {
	Kind PoolKind
	ID   uint64
}

func (k PoolKey) String() string { return fmt.Sprintf("%s:%d", k.Kind, k.ID) }

// Pool is a counter of bookable units.  Remaining is the single source of
// truth for capacity; records never cache it.
type Pool struct {
	Key       PoolKey
	Total     int
	Remaining int
}

// Committed is the quantity currently held by active records.
func (p Pool) Committed() int { return p.Total - p.Remaining }

// Take consumes q units.  It leaves p untouched on failure.
func (p *Pool) Take(q int) error {
	if q < 1 {
		return ErrInvalidQuantity
	}
	if q > p.Remaining {
		return &InsufficientCapacityError{Pool: p.Key, Requested: q, Available: p.Remaining}
	}
	p.Remaining -= q
	return nil
}

// Give returns q units previously taken.
func (p *Pool) Give(q int) error {
	if q < 1 {
		return ErrInvalidQuantity
	}
	if p.Remaining+q > p.Total {
		return fmt.Errorf("%w: %s has %d of %d, crediting %d", ErrOverflow, p.Key, p.Remaining, p.Total, q)
	}
	p.Remaining += q
	return nil
}

// Resize changes the total while keeping the committed quantity.
func (p *Pool) Resize(total int) error {
	if total < 1 {
		return ErrInvalidQuantity
	}
	committed := p.Committed()
	if total < committed {
		return fmt.Errorf("%w: %s has %d committed, new total %d", ErrCapacityInUse, p.Key, committed, total)
	}
	p.Total = total
	p.Remaining = total - committed
	return nil
}

// Record is one booking's claim on a pool.
type Record struct {
	ID       uint64
	Pool     PoolKey
	Quantity int
	Status   Status
}

// Transition moves the record to next if the table allows it.
func (r *Record) Transition(next Status) error {
	if !r.Status.CanTransition(next) {
		return &InvalidTransitionError{Current: r.Status, Target: next}
	}
	r.Status = next
	return nil
}
