package kv

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-process Backend. It is used by tests and by the daemon
// when no persistent backend is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory backend
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = clone(value)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Batch stages every write made through tx and applies them together
func (m *Memory) Batch(ctx context.Context, fn func(tx Backend) error) error {
	tx := &memoryTx{parent: m, writes: make(map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range tx.writes {
		if v == nil {
			delete(m.data, k)
			continue
		}
		m.data[k] = v
	}
	return nil
}

// memoryTx overlays staged writes on the parent map. A nil value marks a
// staged delete.
type memoryTx struct {
	parent *Memory
	writes map[string][]byte
}

func (t *memoryTx) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := t.writes[key]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return clone(v), nil
	}
	return t.parent.Get(ctx, key)
}

func (t *memoryTx) Set(ctx context.Context, key string, value []byte) error {
	v := clone(value)
	if v == nil {
		v = []byte{}
	}
	t.writes[key] = v
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, key string) error {
	t.writes[key] = nil
	return nil
}

func (t *memoryTx) List(ctx context.Context, prefix string) ([]string, error) {
	base, err := t.parent.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(base))
	keys := make([]string, 0, len(base))
	for _, k := range base {
		seen[k] = true
		if v, staged := t.writes[k]; staged && v == nil {
			continue
		}
		keys = append(keys, k)
	}
	for k, v := range t.writes {
		if v != nil && !seen[k] && strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
