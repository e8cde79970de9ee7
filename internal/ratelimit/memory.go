package ratelimit

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

var _ Store = (*Memory)(nil)

// Memory implements Store in-process. Each window has its own lock so
// increment+check serializes per key without a global lock.
type Memory struct {
	mu      sync.RWMutex
	windows map[Key]*memWindow
}

type memWindow struct {
	mu     sync.Mutex
	window Window
}

// NewMemory creates an empty in-memory window store.
func NewMemory() *Memory {
	return &Memory{windows: make(map[Key]*memWindow)}
}

func (m *Memory) Find(ctx context.Context, key Key) (*Window, error) {
	m.mu.RLock()
	e, ok := m.windows[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	w := cloneWindow(e.window)
	return &w, nil
}

func (m *Memory) MutateOrCreate(ctx context.Context, key Key, create func() *Window, fn func(*Window) error) (*Window, error) {
	m.mu.Lock()
	e, ok := m.windows[key]
	if !ok {
		w := create()
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		e = &memWindow{window: cloneWindow(*w)}
		m.windows[key] = e
	}
	m.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	w := cloneWindow(e.window)
	if err := fn(&w); err != nil {
		return nil, err
	}
	e.window = cloneWindow(w)
	return &w, nil
}

func cloneWindow(w Window) Window {
	if w.WindowEnd != nil {
		t := *w.WindowEnd
		w.WindowEnd = &t
	}
	return w
}
