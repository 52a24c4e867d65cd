package models

import (
	"errors"
	"fmt"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrForbidden       = errors.New("forbidden")

	// ErrDuplicateEvent signals the dedup ledger already holds this
	// (provider, event id) pair. Callers treat it as "duplicate, stop",
	// never as a hard failure.
	ErrDuplicateEvent = errors.New("webhook event already recorded")

	// ErrDuplicatePayment signals a payment record already exists for the
	// (order, payment id) pair.
	ErrDuplicatePayment = errors.New("payment record already exists")
)

// InvalidStateError reports a transition attempted from the wrong source
// state. Current carries the order's actual status for diagnostics.
type InvalidStateError struct {
	Current OrderStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid order state %s for requested transition", e.Current)
}

// GatewayError wraps a failed remote payment gateway call.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
