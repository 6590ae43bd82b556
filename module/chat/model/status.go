package model

// Status is the delivery state of a message. Transitions only move
// forward: sending -> sent -> delivered -> read.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

var statusRank = map[Status]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Valid reports whether s is a known delivery state.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether moving from s to next is a forward step.
// Self-transitions are allowed so idempotent updates stay no-ops.
func (s Status) CanTransition(next Status) bool {
	a, ok1 := statusRank[s]
	b, ok2 := statusRank[next]
	return ok1 && ok2 && b >= a
}

// Advance returns the later of the two states; status never regresses.
func (s Status) Advance(next Status) Status {
	if s.CanTransition(next) {
		return next
	}
	return s
}
