package security

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Notification is a best-effort message to a user about a security event.
type Notification struct {
	UserID   string
	Subject  string
	Message  string
	Priority string
}

// Notifier delivers notifications (email, SMS). Calls are fire-and-forget
// from the facade's perspective: a delivery failure never changes a
// decision already made.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, n Notification) error { return nil }

// ThrottledNotifier wraps a Notifier with a per-recipient token bucket so
// an escalation storm cannot flood a user's inbox. Dropped notifications
// are not retried.
type ThrottledNotifier struct {
	inner   Notifier
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewThrottledNotifier allows perMinute notifications per recipient with
// the given burst.
func NewThrottledNotifier(inner Notifier, perMinute float64, burst int) *ThrottledNotifier {
	return &ThrottledNotifier{
		inner:   inner,
		limit:   rate.Limit(perMinute / 60.0),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (t *ThrottledNotifier) Notify(ctx context.Context, n Notification) error {
	t.mu.Lock()
	lim, ok := t.buckets[n.UserID]
	if !ok {
		lim = rate.NewLimiter(t.limit, t.burst)
		t.buckets[n.UserID] = lim
	}
	t.mu.Unlock()

	if !lim.Allow() {
		return nil // silently dropped, best effort
	}
	return t.inner.Notify(ctx, n)
}
