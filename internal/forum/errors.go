package forum

import (
	"errors"
	"fmt"
)

// TransientError marks a network or API hiccup that may succeed if
// retried. Anything not wrapped in it is treated as permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient forum error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Temporary satisfies the retry layer's retryability check.
func (e *TransientError) Temporary() bool { return true }

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether any error in the chain is retryable.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
