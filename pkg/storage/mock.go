package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/dialogue"
)

// MockStorage is an in-memory Storage for tests. Errors can be injected per
// operation.
type MockStorage struct {
	mu         sync.RWMutex
	snapshots  map[string][]byte
	characters []*actor.CharacterSpec
	player     *actor.PlayerSpec
	trees      []*dialogue.Tree
	pingError  error
	saveError  error
	loadError  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{snapshots: make(map[string][]byte)}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes SaveSnapshot fail with err.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SetLoadError makes LoadSnapshot fail with err.
func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

func (m *MockStorage) AddCharacter(spec *actor.CharacterSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters = append(m.characters, spec)
}

func (m *MockStorage) SetPlayer(spec *actor.PlayerSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.player = spec
}

func (m *MockStorage) AddTree(t *dialogue.Tree) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees = append(m.trees, t)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveSnapshot(ctx context.Context, slot string, data []byte) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.snapshots[slot] = slices.Clone(data)
	return nil
}

func (m *MockStorage) LoadSnapshot(ctx context.Context, slot string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadError != nil {
		return nil, m.loadError
	}
	data, ok := m.snapshots[slot]
	if !ok {
		return nil, fmt.Errorf("snapshot %q: %w", slot, ErrNotFound)
	}
	return slices.Clone(data), nil
}

// PutRaw stores bytes under slot without validation, for corruption tests.
func (m *MockStorage) PutRaw(slot string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[slot] = data
}

func (m *MockStorage) DeleteSnapshot(ctx context.Context, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, slot)
	return nil
}

func (m *MockStorage) ListSnapshots(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots := make([]string, 0, len(m.snapshots))
	for slot := range m.snapshots {
		slots = append(slots, slot)
	}
	slices.Sort(slots)
	return slots, nil
}

func (m *MockStorage) ListCharacters(ctx context.Context) ([]*actor.CharacterSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.characters), nil
}

func (m *MockStorage) GetPlayerSpec(ctx context.Context) (*actor.PlayerSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.player == nil {
		return nil, fmt.Errorf("player: %w", ErrNotFound)
	}
	return m.player, nil
}

func (m *MockStorage) ListDialogueTrees(ctx context.Context) ([]*dialogue.Tree, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.trees), nil
}
