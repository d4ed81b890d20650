package common

import (
	"errors"
	"fmt"
)

// Business logic errors
var (
	// General errors
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")

	// Client errors
	ErrClientNotFound = errors.New("client not found")
	ErrClientInactive = errors.New("client is inactive")

	// Content errors
	ErrContentNotFound    = errors.New("content not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrReasonRequired     = errors.New("rejection reason is required")
	ErrRetriesExhausted   = errors.New("retry budget exhausted")
	ErrAlreadyDispatching = errors.New("dispatch already in progress")

	// Configuration errors: fatal, never retried
	ErrNoPlatforms      = errors.New("client has no enabled platforms")
	ErrQuotaExhausted   = errors.New("monthly post quota exhausted")
	ErrNoCredentials    = errors.New("no scheduler credentials configured")
	ErrForeignAccount   = errors.New("account id does not belong to client workspace")
	ErrExportUnwritable = errors.New("fallback export could not be written")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidToken = errors.New("invalid token")
)

// StructuralError marks a platform-specific content problem that a retry
// cannot fix, such as an image-required platform with no media. It is
// reported immediately and never retried.
type StructuralError struct {
	Platform string
	Reason   string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", e.Platform, e.Reason)
}

// IsStructural reports whether err is a structural content error
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// TransientError marks an adapter failure worth retrying: network errors,
// timeouts and 5xx responses from external services.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
