package payment

import "fmt"

// allowedTransitions maps a status to the statuses it may move to.
// REFUNDED and FAILED are terminal.
var allowedTransitions = map[Status][]Status{
	StatusCreated:           {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing:        {StatusCompleted, StatusFailed},
	StatusCompleted:         {StatusPartiallyRefunded, StatusRefunded},
	StatusPartiallyRefunded: {StatusPartiallyRefunded, StatusRefunded},
	StatusRefunded:          {},
	StatusFailed:            {},
}

func CanTransition(from, to Status) bool {
	allowed, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("transition %s -> %s: %w", from, to, ErrInvalidStateTransition)
	}
	return nil
}

func (s Status) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Refundable reports whether a payment in this status accepts refunds.
func (s Status) Refundable() bool {
	return s == StatusCompleted || s == StatusPartiallyRefunded
}
