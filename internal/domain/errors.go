package domain

import (
	"errors"
	"fmt"
)

// ErrSessionExpired marks an upstream 401 during browse or export. The
// fetcher only reports it; clearing the session store is the caller's job.
var ErrSessionExpired = errors.New("session expired")

// TransientError is any non-401 upstream failure: connection-level errors,
// non-2xx statuses, or unparseable success bodies. It is surfaced with
// whatever detail the upstream provided and is never retried automatically.
type TransientError struct {
	StatusCode  int
	Message     string
	Unreachable bool
	Err         error
}

func (e *TransientError) Error() string {
	if e.Unreachable {
		return fmt.Sprintf("upstream unreachable: %s", e.Message)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream request failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream request failed: %s", e.Message)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewUnreachableError wraps a connection-level failure with a message that
// points at the upstream service rather than this one.
func NewUnreachableError(err error) *TransientError {
	return &TransientError{
		Message:     fmt.Sprintf("cannot reach the scan-record API, check that it is running: %v", err),
		Unreachable: true,
		Err:         err,
	}
}

// AsTransient extracts a TransientError from an error chain.
func AsTransient(err error) (*TransientError, bool) {
	var te *TransientError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
