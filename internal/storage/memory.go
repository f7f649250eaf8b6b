package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/jwebster45206/npc-engine/pkg/storage"
)

// MemoryStorage keeps snapshots in process memory. Saves are lost on exit.
type MemoryStorage struct {
	*Content
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// Ensure MemoryStorage implements Storage interface
var _ storage.Storage = (*MemoryStorage)(nil)

func NewMemoryStorage(content *Content) *MemoryStorage {
	return &MemoryStorage{Content: content, snapshots: make(map[string][]byte)}
}

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }
func (m *MemoryStorage) Close() error                   { return nil }

func (m *MemoryStorage) SaveSnapshot(ctx context.Context, slot string, data []byte) error {
	if err := storage.ValidateSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[slot] = slices.Clone(data)
	return nil
}

func (m *MemoryStorage) LoadSnapshot(ctx context.Context, slot string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.snapshots[slot]
	if !ok {
		return nil, fmt.Errorf("snapshot %q: %w", slot, storage.ErrNotFound)
	}
	return slices.Clone(data), nil
}

func (m *MemoryStorage) DeleteSnapshot(ctx context.Context, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, slot)
	return nil
}

func (m *MemoryStorage) ListSnapshots(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots := make([]string, 0, len(m.snapshots))
	for slot := range m.snapshots {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return slots, nil
}
