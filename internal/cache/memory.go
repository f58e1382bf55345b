package cache

import (
	"context"
	"sync"
)

// MemoryHashStore is an in-process HashStore for tests and single-node dev runs.
type MemoryHashStore struct {
	mu     sync.RWMutex
	hashes map[string]map[string]string
}

func NewMemoryHashStore() *MemoryHashStore {
	return &MemoryHashStore{hashes: make(map[string]map[string]string)}
}

func (m *MemoryHashStore) HGet(_ context.Context, key, field string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.hashes[key][field]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryHashStore) HSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (m *MemoryHashStore) HDel(_ context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields {
		delete(m.hashes[key], f)
	}
	return nil
}

func (m *MemoryHashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

// MemoryActionLog keeps published records in memory.
type MemoryActionLog struct {
	mu      sync.Mutex
	records []GameActionRecord
}

func (l *MemoryActionLog) PublishGameAction(_ context.Context, record GameActionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

// Records returns a copy of everything published so far.
func (l *MemoryActionLog) Records() []GameActionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]GameActionRecord, len(l.records))
	copy(out, l.records)
	return out
}
