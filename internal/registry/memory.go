package registry

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Memory is an in-process Registry. The zero value is not usable; call
// NewMemory.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	lock   *semaphore.Weighted
	expiry Expiry
}

// NewMemory returns an empty in-process registry.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memoryEntry)}
}

// entry returns the entry for app, creating it on first use.
func (m *Memory) entry(app string) *memoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[app]
	if !ok {
		e = &memoryEntry{lock: semaphore.NewWeighted(1)}
		m.entries[app] = e
	}

	return e
}

// Acquire blocks until the app lock is free or ctx is done.
func (m *Memory) Acquire(ctx context.Context, app string) error {
	if err := m.entry(app).lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("registry: acquiring %s: %w", app, err)
	}

	return nil
}

// Release frees the app lock. Returns ErrNotHeld if nobody holds it.
func (m *Memory) Release(_ context.Context, app string) error {
	e := m.entry(app)

	// A successful TryAcquire means the lock was free.
	if e.lock.TryAcquire(1) {
		e.lock.Release(1)
		return ErrNotHeld
	}

	e.lock.Release(1)

	return nil
}

// State returns the shared expiry pair for app.
func (m *Memory) State(_ context.Context, app string) (Expiry, error) {
	e := m.entry(app)

	m.mu.Lock()
	defer m.mu.Unlock()

	return e.expiry, nil
}

// SetState replaces the shared expiry pair for app.
func (m *Memory) SetState(_ context.Context, app string, exp Expiry) error {
	e := m.entry(app)

	m.mu.Lock()
	e.expiry = exp
	m.mu.Unlock()

	return nil
}
