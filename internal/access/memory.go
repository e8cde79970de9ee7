package access

import (
	"context"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory implements Store in-process. Each grant carries its own lock so
// mutations on different keys proceed independently; the outer mutex only
// guards the map itself.
type Memory struct {
	mu     sync.RWMutex
	grants map[Key]*memEntry
}

type memEntry struct {
	mu    sync.Mutex
	grant Grant
}

// NewMemory creates an empty in-memory grant store.
func NewMemory() *Memory {
	return &Memory{grants: make(map[Key]*memEntry)}
}

func (m *Memory) Create(ctx context.Context, g *Grant) error {
	key := Key{HomeID: g.HomeID, UserID: g.UserID, DeviceID: g.DeviceID}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.grants[key]; ok {
		return ErrAlreadyExists
	}
	m.grants[key] = &memEntry{grant: cloneGrant(*g)}
	return nil
}

func (m *Memory) Find(ctx context.Context, key Key) (*Grant, error) {
	m.mu.RLock()
	e, ok := m.grants[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	g := cloneGrant(e.grant)
	return &g, nil
}

func (m *Memory) ListForUser(ctx context.Context, homeID, userID string) ([]*Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Grant
	for key, e := range m.grants {
		if key.HomeID != homeID || key.UserID != userID {
			continue
		}
		e.mu.Lock()
		g := cloneGrant(e.grant)
		e.mu.Unlock()
		out = append(out, &g)
	}
	return out, nil
}

func (m *Memory) Mutate(ctx context.Context, key Key, fn func(*Grant) error) (*Grant, error) {
	m.mu.RLock()
	e, ok := m.grants[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	g := cloneGrant(e.grant)
	if err := fn(&g); err != nil {
		return nil, err
	}
	e.grant = cloneGrant(g)
	return &g, nil
}

func cloneGrant(g Grant) Grant {
	if g.ExpiresAt != nil {
		t := *g.ExpiresAt
		g.ExpiresAt = &t
	}
	if g.LastUsed != nil {
		t := *g.LastUsed
		g.LastUsed = &t
	}
	if g.Restrictions != nil {
		r := make(map[string]any, len(g.Restrictions))
		for k, v := range g.Restrictions {
			r[k] = v
		}
		g.Restrictions = r
	}
	return g
}
