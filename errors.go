package genstudio

import (
	"errors"
	"fmt"
	"time"
)

// FailurePrefix marks user-visible failure text.
const FailurePrefix = "Error:"

// ErrNoImageGenerated is returned when the provider reports success but
// returns no images.
var ErrNoImageGenerated = errors.New("No image was generated.")

// RateLimitError is returned when a rate limit is hit.
type RateLimitError struct {
	RetryAfter time.Duration
	LimitType  string
	Model      string
	Err        error // Underlying error from the provider
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %s limit, retry after %v",
		e.Model, e.LimitType, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimitError checks if an error is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// FailureText renders a gateway error the way the widgets display it:
// the literal "Error:" marker followed by the failure detail.
func FailureText(err error) string {
	if err == nil {
		return ""
	}
	return FailurePrefix + " " + err.Error()
}
