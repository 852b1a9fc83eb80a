package llm

import "errors"

// classifiedError tags an error as transient (worth retrying) or fatal.
type classifiedError struct {
	err   error
	fatal bool
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &classifiedError{err: err}
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &classifiedError{err: err, fatal: true}
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var ce *classifiedError
	return errors.As(err, &ce) && ce.fatal
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var ce *classifiedError
	return errors.As(err, &ce) && !ce.fatal
}
