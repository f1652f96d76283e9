package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// Memory keeps values in process. Used by tests and single-instance deployments.
type Memory struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]memoryEntry
	now  func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:  ttl,
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return "", nil
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return "", nil
	}
	return entry.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	entry := memoryEntry{value: value}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.data[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
