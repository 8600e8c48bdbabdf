package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/opensdd/youtrack-core/core/transport"
)

var (
	// ErrInvalidIdentifier is returned when a "#"-prefixed reference is passed
	// where a bare issue identifier is expected.
	ErrInvalidIdentifier = errors.New("invalid issue identifier")
	// ErrRemoteUnavailable matches every RemoteError.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrMissingProjectReference is returned for issue payloads without a
	// project short name.
	ErrMissingProjectReference = errors.New("missing project reference")
)

// RemoteError reports a failed round trip to the tracker: a non-success,
// non-not-found status, or no response at all (Status 0).
type RemoteError struct {
	Op     string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed in %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("the server responded with a %d status code in %s: %v", e.Status, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemoteUnavailable }

// Remote wraps a transport failure of op into a *RemoteError. Context
// cancellation is returned wrapped but not classified as remote.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	if status, ok := transport.StatusCode(err); ok {
		return &RemoteError{Op: op, Status: status, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &RemoteError{Op: op, Err: err}
}
