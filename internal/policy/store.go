package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Source supplies policy snapshots for evaluation.
type Source interface {
	// ActiveForHome returns active policies for a home, optionally filtered
	// by type (empty Type means all types).
	ActiveForHome(ctx context.Context, homeID string, typ Type) ([]Policy, error)
	Find(ctx context.Context, id string) (Policy, error)
	// Save stores a new policy version. The rule mapping is replaced
	// wholesale; existing snapshots held by callers are unaffected.
	Save(ctx context.Context, p *Policy) error
	Deactivate(ctx context.Context, id string) error
}

// Memory is an in-process Source holding immutable policy snapshots.
type Memory struct {
	mu       sync.RWMutex
	policies map[string]Policy
	now      func() time.Time
}

// NewMemory creates an empty in-memory policy source.
func NewMemory() *Memory {
	return &Memory{policies: make(map[string]Policy), now: time.Now}
}

func (m *Memory) ActiveForHome(ctx context.Context, homeID string, typ Type) ([]Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Policy
	for _, p := range m.policies {
		if !p.Active || p.HomeID != homeID {
			continue
		}
		if typ != "" && p.Type != typ {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) Find(ctx context.Context, id string) (Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return Policy{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) Save(ctx context.Context, p *Policy) error {
	if p.Name == "" {
		return fmt.Errorf("%w: policy name is required", ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = m.now().UTC()
	}
	p.UpdatedAt = m.now().UTC()
	m.policies[p.ID] = *p
	return nil
}

func (m *Memory) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = false
	p.UpdatedAt = m.now().UTC()
	m.policies[id] = p
	return nil
}
