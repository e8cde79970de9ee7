package alert

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists alerts. Mutate applies fn atomically per alert.
type Store interface {
	Create(ctx context.Context, a *Alert) error
	Find(ctx context.Context, id string) (*Alert, error)
	ListActive(ctx context.Context, homeID string) ([]*Alert, error)
	Mutate(ctx context.Context, id string, fn func(*Alert) error) (*Alert, error)
}

var _ Store = (*Memory)(nil)

// Memory implements Store in-process.
type Memory struct {
	mu     sync.RWMutex
	alerts map[string]*memAlert
	now    func() time.Time
}

type memAlert struct {
	mu    sync.Mutex
	alert Alert
}

// NewMemory creates an empty in-memory alert store.
func NewMemory() *Memory {
	return &Memory{alerts: make(map[string]*memAlert), now: time.Now}
}

func (m *Memory) Create(ctx context.Context, a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Priority == "" {
		a.Priority = PriorityMedium
	}
	now := m.now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = &memAlert{alert: cloneAlert(*a)}
	return nil
}

func (m *Memory) Find(ctx context.Context, id string) (*Alert, error) {
	m.mu.RLock()
	e, ok := m.alerts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	a := cloneAlert(e.alert)
	return &a, nil
}

func (m *Memory) ListActive(ctx context.Context, homeID string) ([]*Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Alert
	for _, e := range m.alerts {
		e.mu.Lock()
		a := cloneAlert(e.alert)
		e.mu.Unlock()
		if a.HomeID == homeID && !a.Resolved {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (m *Memory) Mutate(ctx context.Context, id string, fn func(*Alert) error) (*Alert, error) {
	m.mu.RLock()
	e, ok := m.alerts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	a := cloneAlert(e.alert)
	if err := fn(&a); err != nil {
		return nil, err
	}
	a.UpdatedAt = m.now().UTC()
	e.alert = cloneAlert(a)
	return &a, nil
}

func cloneAlert(a Alert) Alert {
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		a.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		a.ResolvedAt = &t
	}
	return a
}
