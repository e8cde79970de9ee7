package token

import (
	"context"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory implements Store in-process with per-token locks.
type Memory struct {
	mu      sync.RWMutex
	tokens  map[string]*memToken
	byValue map[string]string // value -> id
}

type memToken struct {
	mu    sync.Mutex
	token Token
}

// NewMemory creates an empty in-memory token store.
func NewMemory() *Memory {
	return &Memory{
		tokens:  make(map[string]*memToken),
		byValue: make(map[string]string),
	}
}

func (m *Memory) Create(ctx context.Context, t *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[t.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := m.byValue[t.Value]; ok {
		return ErrAlreadyExists
	}
	m.tokens[t.ID] = &memToken{token: cloneToken(*t)}
	m.byValue[t.Value] = t.ID
	return nil
}

func (m *Memory) Find(ctx context.Context, id string) (*Token, error) {
	m.mu.RLock()
	e, ok := m.tokens[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	t := cloneToken(e.token)
	return &t, nil
}

func (m *Memory) FindByValue(ctx context.Context, value string) (*Token, error) {
	m.mu.RLock()
	id, ok := m.byValue[value]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Find(ctx, id)
}

func (m *Memory) Mutate(ctx context.Context, id string, fn func(*Token) error) (*Token, error) {
	m.mu.RLock()
	e, ok := m.tokens[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	t := cloneToken(e.token)
	if err := fn(&t); err != nil {
		return nil, err
	}
	e.token = cloneToken(t)
	return &t, nil
}

func cloneToken(t Token) Token {
	if t.ExpiresAt != nil {
		v := *t.ExpiresAt
		t.ExpiresAt = &v
	}
	if t.LastUsed != nil {
		v := *t.LastUsed
		t.LastUsed = &v
	}
	return t
}
