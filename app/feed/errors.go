package feed

import (
	"errors"
	"fmt"
)

// PolicyViolation is returned when the mutation would break the feed
// count bounds. It is detected locally and never reaches the transport.
type PolicyViolation struct {
	Notice string
}

// Error returns the user-facing notice.
func (e *PolicyViolation) Error() string { return e.Notice }

// Policy violations.
var (
	ErrFeedLimitExceeded   = &PolicyViolation{Notice: fmt.Sprintf("You may not have more than %d RSS feeds.", MaxFeeds)}
	ErrFeedMinimumViolated = &PolicyViolation{Notice: fmt.Sprintf("You cannot have less than %d RSS feeds.", MinFeeds)}
)

// ErrBusy is returned when the operation conflicts with an in-flight one:
// a rescrape while a mutation is unconfirmed, or a mutation during a rescrape.
var ErrBusy = errors.New("another operation is in progress")

// ErrInvalidInput is returned when the operation arguments are malformed.
var ErrInvalidInput = errors.New("invalid input")

// TransportError wraps a failed remote call.
type TransportError struct {
	Op  string
	Err error
}

// Error returns the failed operation along with the cause.
func (e *TransportError) Error() string { return fmt.Sprintf("transport %s: %v", e.Op, e.Err) }

// Unwrap returns the cause.
func (e *TransportError) Unwrap() error { return e.Err }
