package dialogue

import (
	"slices"
	"sync"

	"github.com/jwebster45206/npc-engine/pkg/clock"
)

// HistoryCapacity bounds each character's dialogue history.
const HistoryCapacity = 50

// HistoryEntry records one chosen option.
type HistoryEntry struct {
	Tree      string          `json:"tree"`
	Node      string          `json:"node"`
	Option    string          `json:"option"`
	Timestamp clock.Timestamp `json:"timestamp"`
	Flags     []string        `json:"flags,omitempty"`
}

// HistoryStore keeps each character's most recent choices, oldest evicted first.
type HistoryStore struct {
	mu      sync.RWMutex
	entries map[int][]HistoryEntry
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{entries: make(map[int][]HistoryEntry)}
}

func (h *HistoryStore) Add(owner int, e HistoryEntry) {
	e.Flags = slices.Clone(e.Flags)
	h.mu.Lock()
	defer h.mu.Unlock()
	log := append(h.entries[owner], e)
	if over := len(log) - HistoryCapacity; over > 0 {
		log = slices.Clone(log[over:])
	}
	h.entries[owner] = log
}

// Count is the number of retained entries for owner.
func (h *HistoryStore) Count(owner int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries[owner])
}

func (h *HistoryStore) All(owner int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return cloneHistory(h.entries[owner])
}

func (h *HistoryStore) Snapshot() map[int][]HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[int][]HistoryEntry, len(h.entries))
	for owner, log := range h.entries {
		out[owner] = cloneHistory(log)
	}
	return out
}

// Restore replaces every log, keeping at most the newest HistoryCapacity entries.
func (h *HistoryStore) Restore(entries map[int][]HistoryEntry) {
	next := make(map[int][]HistoryEntry, len(entries))
	for owner, log := range entries {
		if over := len(log) - HistoryCapacity; over > 0 {
			log = log[over:]
		}
		next[owner] = cloneHistory(log)
	}
	h.mu.Lock()
	h.entries = next
	h.mu.Unlock()
}

func cloneHistory(log []HistoryEntry) []HistoryEntry {
	if log == nil {
		return nil
	}
	out := make([]HistoryEntry, len(log))
	for i, e := range log {
		out[i] = e
		out[i].Flags = slices.Clone(e.Flags)
	}
	return out
}
