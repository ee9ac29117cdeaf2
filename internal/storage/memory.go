package storage

import (
	"bytes"
	"context"
	"sync"

	"netmodifier/pkg/domain"
)

// Memory 内存键值存储
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	notify *notifier
	closed bool
}

// NewMemory 创建内存存储
func NewMemory() *Memory {
	return &Memory{
		data:   make(map[string][]byte),
		notify: newNotifier(),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, domain.ErrStoreClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrStoreClosed
	}
	old := m.data[key]
	m.data[key] = bytes.Clone(value)
	m.mu.Unlock()

	m.notify.publish(domain.StorageChange{Key: key, OldValue: bytes.Clone(old), NewValue: bytes.Clone(value)})
	return nil
}

func (m *Memory) Subscribe() (<-chan domain.StorageChange, func()) {
	return m.notify.subscribe()
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.notify.close()
	return nil
}
