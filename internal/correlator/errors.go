package correlator

import (
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrTimeout     = errors.New("request timeout")
	ErrCancelled   = errors.New("request cancelled")
	ErrDuplicateID = errors.New("duplicate correlation id")
	ErrInvalidID   = errors.New("empty correlation id")
)

// RequestTimeoutError is returned when no response matched within the deadline.
type RequestTimeoutError struct {
	ID      string
	Timeout time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request %s: no response within %s", e.ID, e.Timeout)
}

func (e *RequestTimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// CancelledError is returned to requests discarded by ClearAll.
type CancelledError struct {
	ID     string
	Reason error
}

func (e *CancelledError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("request %s cancelled: %v", e.ID, e.Reason)
	}
	return fmt.Sprintf("request %s cancelled", e.ID)
}

func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

func (e *CancelledError) Unwrap() error {
	return e.Reason
}
