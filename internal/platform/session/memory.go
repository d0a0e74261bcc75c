package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medsave/rxwizard/internal/domain/draft"
)

type memoryEntry struct {
	mu        sync.Mutex
	store     *draft.Store
	expiresAt time.Time
	deleted   bool
}

// Memory is a process-local Repository with lazy expiration.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Create(_ context.Context, s *draft.Store) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = &memoryEntry{store: s.Clone(), expiresAt: m.now().Add(m.ttl)}
	return id, nil
}

func (m *Memory) Get(_ context.Context, id string) (*draft.Store, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, ErrNotFound
	}
	return e.store.Clone(), nil
}

func (m *Memory) Update(ctx context.Context, id string, fn func(*draft.Store) error) (*draft.Store, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next := e.store.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	e.store = next
	e.expiresAt = m.now().Add(m.ttl)
	return next.Clone(), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	return nil
}

// Len reports the number of drafts held, expired ones included until swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// StartCleanup removes expired drafts every interval until ctx is done.
func (m *Memory) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, id)
		}
	}
}

func (m *Memory) lookup(id string) (*memoryEntry, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		if m.entries[id] == e {
			delete(m.entries, id)
		}
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return e, nil
}
