package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEntityNotFound is returned by an Upstream when it has not learned the peer yet.
	// It triggers degraded resolution and is not a failure from the caller's perspective.
	ErrEntityNotFound = errors.New("entity not found")

	ErrSubscriberNotReady   = errors.New("subscriber not ready")
	ErrSubscriberBufferFull = errors.New("subscriber send buffer full")
	ErrNotAuthorized        = errors.New("upstream session not authorized")
	ErrLeaseLost            = errors.New("lease lost")
)

// RateLimitedError reports that the upstream asked the caller to back off for Wait.
type RateLimitedError struct {
	Wait time.Duration
	Err  error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited for %v: %v", e.Wait, e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }
