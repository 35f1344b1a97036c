package appointments

import "fmt"

var allowedTransitions = map[Status][]Status{
	StatusPending:       {StatusAwaitingProof, StatusConfirmed, StatusCancelled},
	StatusAwaitingProof: {StatusAwaitingProof, StatusConfirmed, StatusCancelled},
	StatusConfirmed:     {StatusCancelled},
	StatusCancelled:     {},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
