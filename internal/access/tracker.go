package access

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store describes persistence for grants. Mutate must apply fn to the
// current grant and persist the result as one atomic step per key.
type Store interface {
	Create(ctx context.Context, g *Grant) error
	Find(ctx context.Context, key Key) (*Grant, error)
	ListForUser(ctx context.Context, homeID, userID string) ([]*Grant, error)
	Mutate(ctx context.Context, key Key, fn func(*Grant) error) (*Grant, error)
}

// Tracker manages grant lifecycle and usage recording.
type Tracker struct {
	store Store
	now   func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTracker constructs a Tracker over the given store.
func NewTracker(store Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{store: store, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Grant creates a new grant. Returns ErrAlreadyExists when a grant for the
// same (home, user, device) triple exists, active or not.
func (t *Tracker) Grant(ctx context.Context, g *Grant) error {
	key := Key{HomeID: g.HomeID, UserID: g.UserID, DeviceID: g.DeviceID}
	if !key.valid() {
		return fmt.Errorf("%w: home, user and device are required", ErrInvalidInput)
	}
	if _, ok := levels[g.Level]; !ok {
		return fmt.Errorf("%w: unknown access level %q", ErrInvalidInput, g.Level)
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.Active = true
	g.GrantedAt = t.now().UTC()
	return t.store.Create(ctx, g)
}

// Find loads a grant by its natural key.
func (t *Tracker) Find(ctx context.Context, key Key) (*Grant, error) {
	return t.store.Find(ctx, key)
}

// IsValid reports whether the grant for key admits use right now.
func (t *Tracker) IsValid(ctx context.Context, key Key) (bool, error) {
	g, err := t.store.Find(ctx, key)
	if err != nil {
		return false, err
	}
	return g.Valid(t.now()), nil
}

// RecordAccess increments the usage counter and stamps last-used. The
// update is atomic with respect to concurrent callers for the same key.
func (t *Tracker) RecordAccess(ctx context.Context, key Key) (*Grant, error) {
	now := t.now().UTC()
	return t.store.Mutate(ctx, key, func(g *Grant) error {
		g.AccessCount++
		g.LastUsed = &now
		return nil
	})
}

// Revoke deactivates the grant. The record is kept for the audit trail.
func (t *Tracker) Revoke(ctx context.Context, key Key) (*Grant, error) {
	return t.store.Mutate(ctx, key, func(g *Grant) error {
		g.Active = false
		return nil
	})
}

// Restrictions returns the opaque restriction mapping for callers to
// interpret.
func (t *Tracker) Restrictions(ctx context.Context, key Key) (map[string]any, error) {
	g, err := t.store.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	return g.Restrictions, nil
}
