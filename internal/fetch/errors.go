package fetch

import (
	"errors"
	"fmt"
)

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// PolicyError is returned when a fetch target is outside a store's allowlist.
// The URL is never requested.
type PolicyError struct {
	URL  string
	Host string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("host %q is not allowed for this store: %s", e.Host, e.URL)
}

// IsPolicyError reports whether err is or wraps a *PolicyError.
func IsPolicyError(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe)
}
