package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrExceedsBurst is returned when a single request asks for more tokens than
// the per-minute budget can ever hold.
var ErrExceedsBurst = errors.New("request exceeds rate limit capacity")

// RateLimiter enforces a per-minute token budget and a per-minute request
// budget. A zero budget disables that dimension.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   *rate.Limiter
	requests *rate.Limiter
}

// Ensure RateLimiter implements Limiter.
var _ Limiter = (*RateLimiter)(nil)

// New creates a RateLimiter that refills continuously over one minute.
func New(tokensPerMinute, requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		tokens:   perMinute(tokensPerMinute),
		requests: perMinute(requestsPerMinute),
	}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

// TryConsume atomically checks both budgets and consumes from both only if
// both have capacity.
func (rl *RateLimiter) TryConsume(numTokens int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if !hasCapacity(rl.tokens, now, numTokens) || !hasCapacity(rl.requests, now, 1) {
		return false
	}
	if rl.tokens != nil {
		rl.tokens.AllowN(now, numTokens)
	}
	if rl.requests != nil {
		rl.requests.AllowN(now, 1)
	}
	return true
}

func hasCapacity(l *rate.Limiter, now time.Time, n int) bool {
	if l == nil {
		return true
	}
	return n <= l.Burst() && l.TokensAt(now) >= float64(n)
}

// TimeUntilAvailable returns how long until the specified tokens would be
// available. It does not consume anything.
func (rl *RateLimiter) TimeUntilAvailable(tokens int) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	return max(delayFor(rl.tokens, now, tokens), delayFor(rl.requests, now, 1))
}

func delayFor(l *rate.Limiter, now time.Time, n int) time.Duration {
	if l == nil {
		return 0
	}
	r := l.ReserveN(now, n)
	if !r.OK() {
		return rate.InfDuration
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	return d
}

// WaitAndConsume waits until both budgets have room (up to maxWait), then
// consumes from both. If maxWait is 0, there is no limit on how long to wait.
// Nothing is consumed when it returns an error.
func (rl *RateLimiter) WaitAndConsume(ctx context.Context, tokens int, maxWait time.Duration) error {
	if rl.tokens != nil && tokens > rl.tokens.Burst() {
		return fmt.Errorf("%w: %d tokens (max %d)", ErrExceedsBurst, tokens, rl.tokens.Burst())
	}

	var giveUp time.Time
	if maxWait > 0 {
		giveUp = time.Now().Add(maxWait)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rl.TryConsume(tokens) {
			return nil
		}

		wait := rl.TimeUntilAvailable(tokens)
		ready := time.Now().Add(wait)
		if !giveUp.IsZero() && ready.After(giveUp) {
			return fmt.Errorf("rate limit wait time %v exceeds max wait %v", wait, maxWait)
		}
		if deadline, ok := ctx.Deadline(); ok && ready.After(deadline) {
			return fmt.Errorf("rate limit wait time %v exceeds context deadline", wait)
		}

		// Another caller may take the capacity first; then wait again.
		timer := time.NewTimer(max(wait, time.Millisecond))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
