// Package ratelimit implements a counting window over (user, operation)
// pairs. Windows never expire on their own; Reset is the only way a
// window restarts, so production deployments need an external sweeper.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("ratelimit: not found")
	ErrInvalidInput = errors.New("ratelimit: invalid input")
)

// DefaultThreshold is the number of admitted calls per window.
const DefaultThreshold = 5

// Window is the counting state for one (user, operation) pair. Count only
// resets through an explicit window reset; the limited flag is sticky
// until then.
type Window struct {
	ID          string
	UserID      string
	Operation   string
	Count       uint64
	WindowStart time.Time
	WindowEnd   *time.Time
	Limited     bool
	CreatedAt   time.Time
}

// Key identifies a window.
type Key struct {
	UserID    string
	Operation string
}

// Result is the outcome of one Admit call.
type Result struct {
	Admitted bool
	Count    uint64
	// ResetAt carries the window end as a retry-after hint when the call
	// was limited and the window has an end set; nil otherwise.
	ResetAt *time.Time
}

// Store persists windows. MutateOrCreate must load-or-create the window
// for key and apply fn as one atomic step per key; windows for different
// keys must not contend.
type Store interface {
	Find(ctx context.Context, key Key) (*Window, error)
	MutateOrCreate(ctx context.Context, key Key, create func() *Window, fn func(*Window) error) (*Window, error)
}

// Limiter admits or rejects calls against per-key counting windows.
type Limiter struct {
	store     Store
	threshold uint64
	now       func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithThreshold overrides the admitted-calls-per-window limit.
func WithThreshold(n uint64) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.threshold = n
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(l *Limiter) {
		if fn != nil {
			l.now = fn
		}
	}
}

// NewLimiter constructs a Limiter over the given store.
func NewLimiter(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, threshold: DefaultThreshold, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit records one call for (user, operation) and reports whether it is
// admitted. The count increments before the check, so the call that
// reaches the threshold is itself rejected and the counter keeps growing
// while limited. Increment and check are one atomic step per key.
func (l *Limiter) Admit(ctx context.Context, userID, operation string) (Result, error) {
	key := Key{UserID: userID, Operation: operation}
	if key.UserID == "" || key.Operation == "" {
		return Result{}, fmt.Errorf("%w: user and operation are required", ErrInvalidInput)
	}
	now := l.now().UTC()
	w, err := l.store.MutateOrCreate(ctx, key,
		func() *Window {
			return &Window{
				UserID:      userID,
				Operation:   operation,
				WindowStart: now,
				CreatedAt:   now,
			}
		},
		func(w *Window) error {
			w.Count++
			if w.Count >= l.threshold {
				w.Limited = true
			}
			return nil
		},
	)
	if err != nil {
		return Result{}, err
	}
	if w.Limited {
		return Result{Admitted: false, Count: w.Count, ResetAt: w.WindowEnd}, nil
	}
	return Result{Admitted: true, Count: w.Count}, nil
}

// Reset zeroes the window for (user, operation) and clears the limited
// flag. Invoked by an external scheduler or explicit admin action.
func (l *Limiter) Reset(ctx context.Context, userID, operation string) error {
	key := Key{UserID: userID, Operation: operation}
	now := l.now().UTC()
	_, err := l.store.MutateOrCreate(ctx, key,
		func() *Window {
			return &Window{UserID: userID, Operation: operation, WindowStart: now, CreatedAt: now}
		},
		func(w *Window) error {
			w.Count = 0
			w.WindowStart = now
			w.WindowEnd = nil
			w.Limited = false
			return nil
		},
	)
	return err
}

// Status returns the current window without recording a call.
func (l *Limiter) Status(ctx context.Context, userID, operation string) (*Window, error) {
	return l.store.Find(ctx, Key{UserID: userID, Operation: operation})
}

// Threshold reports the configured admitted-calls limit.
func (l *Limiter) Threshold() uint64 { return l.threshold }
