package monitor

import (
	"errors"
	"fmt"
	"time"
)

// ErrRemoteMonitorGone is returned by Synchronizer when the monitor addressed by an
// update no longer exists in Datadog.
var ErrRemoteMonitorGone = errors.New("datadog monitor no longer exists")

// ErrInvalidTags is returned when the spec carries a tags field that is not a list.
var ErrInvalidTags = errors.New("spec field \"tags\" must be a list")

// RetryableError is a failure that is expected to go away. The dispatch runtime should
// re-run the event after Delay.
type RetryableError struct {
	Err   error
	Delay time.Duration
}

func (e *RetryableError) Error() string {
	if e.Delay > 0 {
		return fmt.Sprintf("%v (retry in %s)", e.Err, e.Delay)
	}
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// FatalError is a failure that retrying cannot fix.
type FatalError struct {
	Identity Identity
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("monitor %s: %v", e.Identity, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func retryable(err error) error {
	var r *RetryableError
	if errors.As(err, &r) {
		return err
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err asks for another attempt.
func IsRetryable(err error) bool {
	var r *RetryableError
	return errors.As(err, &r)
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}

// RetryDelay returns the delay carried by a retryable error.
func RetryDelay(err error) (time.Duration, bool) {
	var r *RetryableError
	if !errors.As(err, &r) {
		return 0, false
	}
	return r.Delay, true
}
