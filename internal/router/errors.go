package router

import (
	"errors"
	"fmt"
)

// ErrInvalidResult marks a provider that returned without error but whose
// result failed the minimal-shape validation.
var ErrInvalidResult = errors.New("provider returned invalid result")

// Attempt records one failed provider try during fallback.
type Attempt struct {
	Provider string
	Err      error
}

// AllFailedError is the only error that reaches callers of the fallback
// engine: every provider in both lanes was tried and failed or was skipped.
// Per-provider reasons are kept for logging, not for the caller contract.
type AllFailedError struct {
	Operation string
	Attempts  []Attempt
}

func (e *AllFailedError) Error() string {
	return fmt.Sprintf("all providers failed for %s (%d attempts)", e.Operation, len(e.Attempts))
}

func (e *AllFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
