package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNoData        = errors.New("no data available")
	ErrLimitExceeded = errors.New("active prediction limit exceeded")
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// ResolveError describes a failed price-source call. Transient errors
// (network faults, timeouts, rate limits, upstream 5xx) may be retried by the
// resolver; permanent errors exhaust the source for the current pass. Symbols
// a source simply has no price for are never errors at all; they are omitted
// from the result map.
type ResolveError struct {
	Source    string
	Transient bool
	Err       error
}

func (e *ResolveError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s: %s resolve failure: %v", e.Source, kind, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retriable price-source failure.
func IsTransient(err error) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Transient
}
