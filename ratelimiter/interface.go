// Package ratelimiter throttles provider calls per model using token and
// request budgets per minute.
package ratelimiter

import (
	"context"
	"time"
)

// Limiter budgets chat turns and image requests against a model's quota.
type Limiter interface {
	// TryConsume takes tokens and one request if both budgets allow it.
	// A refused call takes nothing.
	TryConsume(tokens int) bool

	// TimeUntilAvailable reports the wait before TryConsume(tokens) would
	// succeed, without consuming anything.
	TimeUntilAvailable(tokens int) time.Duration

	// WaitAndConsume blocks until the budgets allow the call. It fails when
	// ctx is done or the wait would exceed maxWait; zero maxWait waits as
	// long as ctx allows.
	WaitAndConsume(ctx context.Context, tokens int, maxWait time.Duration) error
}
