package payment

import "errors"

var (
	ErrInvalidAmount          = errors.New("invalid payment amount")
	ErrUnsupportedCurrency    = errors.New("unsupported currency")
	ErrInvalidRequest         = errors.New("invalid payment request")
	ErrNotFound               = errors.New("payment not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidRefundAmount    = errors.New("invalid refund amount")
	ErrConflict               = errors.New("payment modified concurrently")
	ErrPersistence            = errors.New("persistence failure")
)
