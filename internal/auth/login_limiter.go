package auth

import (
	"context"
	"strconv"
	"time"

	"adminpanel/internal/cache"
)

const loginAttemptKeyPrefix = "login_attempts:"

// AttemptStore is the counter backend for the login limiter. Get returning
// nil data means no recorded failures; the Redis-backed implementation fails
// open the same way when unreachable.
type AttemptStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Ensure the Redis cache client satisfies AttemptStore.
var _ AttemptStore = (*cache.Client)(nil)

// LoginLimiter throttles repeated failed logins per email using a counter
// with a rolling window. An unreachable backend disables throttling rather
// than blocking logins.
type LoginLimiter struct {
	store       AttemptStore
	maxAttempts int
	window      time.Duration
}

// NewLoginLimiter creates a limiter allowing maxAttempts failures per window.
func NewLoginLimiter(store AttemptStore, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		store:       store,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Allow reports whether a login attempt for email may proceed.
func (l *LoginLimiter) Allow(ctx context.Context, email string) bool {
	data, err := l.store.Get(ctx, loginAttemptKeyPrefix+email)
	if err != nil || data == nil {
		return true
	}
	// The counter is stored by Incr as a decimal string.
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return true
	}
	return n < int64(l.maxAttempts)
}

// RecordFailure bumps the failure counter for email.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) {
	l.store.Incr(ctx, loginAttemptKeyPrefix+email, l.window) //nolint:errcheck
}

// Reset clears the failure counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	l.store.Delete(ctx, loginAttemptKeyPrefix+email) //nolint:errcheck
}
