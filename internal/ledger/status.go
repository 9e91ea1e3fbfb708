package ledger

import "fmt"

// Status is the lifecycle state of a reservation record.  A record is
// created PENDING together with a pool decrement and moves along the
// transition table below.  CANCELLED and COMPLETED are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// transitions lists every permitted move.  Anything absent is rejected.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
	StatusCancelled: nil,
	StatusCompleted: nil,
}

// ParseStatus converts a stored or user-supplied value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("ledger: unknown status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Active reports whether a record in this state still holds capacity.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether the table permits moving from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
