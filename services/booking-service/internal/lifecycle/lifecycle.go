package lifecycle

import "errors"

// Status is a booking's lifecycle state.
//
//	pending -> confirmed | rejected
//	confirmed -> canceling | completed
//	canceling -> canceled
//
// rejected, canceled and completed are terminal; no transition ever leaves
// them. Bookings are never deleted, only moved through these states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCanceling Status = "canceling"
	StatusCanceled  Status = "canceled"
	StatusCompleted Status = "completed"
)

var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected},
	StatusConfirmed: {StatusCanceling, StatusCompleted},
	StatusCanceling: {StatusCanceled},
}

func Valid(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCanceling, StatusCanceled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func Terminal(s Status) bool {
	return s == StatusRejected || s == StatusCanceled || s == StatusCompleted
}

// BlocksSlot reports whether a booking in this status still holds its time
// points against other students.
func BlocksSlot(s Status) bool {
	return s != StatusRejected && s != StatusCanceled
}

// Transition validates the from -> to edge. It never mutates anything; the
// caller applies the status write only when the edge is legal.
func Transition(from, to Status) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
}
