// Package venueerr classifies every venue-adapter failure into the kinds
// enumerated in spec's error handling design, so callers can branch on
// Kind() rather than string-matching or type-switching on transport
// errors. Modeled on pkg/types.OrderError (a typed error with
// a Code and an Error() method), generalized from order-placement errors to
// every adapter operation.
package venueerr

import "fmt"

// Kind is the classification of an adapter failure.
type Kind string

const (
	// Transient is a retryable transport failure (timeout, connection
	// reset, 5xx). The adapter retries with backoff before surfacing it.
	Transient Kind = "transient"
	// RateLimited is a 429 or bucket-exhaustion rejection. Counts against
	// the same retry budget as Transient.
	RateLimited Kind = "rate_limited"
	// SchemaDrift means the venue's response no longer matches the shape
	// the adapter expects. Fatal: unsafe to continue trading against it.
	SchemaDrift Kind = "schema_drift"
	// Validation covers an off-grid price, a size below venue minimum, or
	// any other request the venue would reject outright. Not retried.
	Validation Kind = "validation"
	// InsufficientBalance means the venue reports the account cannot cover
	// the order. The caller should mark the venue/side paused for the scan.
	InsufficientBalance Kind = "insufficient_balance"
	// Unknown is anything the classifier could not place into the above
	// kinds. Logged with context and isolated to the affected ticket.
	Unknown Kind = "unknown"
)

// Error wraps an underlying error with a Kind and the venue/operation that
// produced it.
type Error struct {
	Kind      Kind
	Venue     string
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", e.Venue, e.Operation, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s: %v", e.Venue, e.Operation, e.Kind, e.Err)
}

// Unwrap allows errors.Is/errors.As to reach the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the adapter's retry loop should attempt this
// operation again.
func (e *Error) Retryable() bool {
	return e.Kind == Transient || e.Kind == RateLimited
}

// New wraps err as a classified venue error.
func New(kind Kind, venue, operation string, err error) *Error {
	return &Error{Kind: kind, Venue: venue, Operation: operation, Err: err}
}

// As extracts a *Error from err, if present, mirroring errors.As without
// forcing every call site to declare a local variable.
func As(err error) (*Error, bool) {
	ve, ok := err.(*Error)
	if ok {
		return ve, true
	}
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
		if err == nil {
			return nil, false
		}
		if ve, ok := err.(*Error); ok {
			return ve, true
		}
	}
}

// KindOf classifies err, defaulting to Unknown when err is not a *Error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if ve, ok := As(err); ok {
		return ve.Kind
	}
	return Unknown
}
