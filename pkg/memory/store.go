package memory

import (
	"slices"
	"strings"
	"sync"

	"github.com/jwebster45206/npc-engine/pkg/clock"
	"golang.org/x/text/cases"
)

// Capacity is the most entries a single character remembers.
const Capacity = 20

// Entry is one remembered event. Entries are never mutated after creation.
type Entry struct {
	Text      string          `json:"text"`
	Impact    int             `json:"impact"`
	Source    string          `json:"source"`
	Timestamp clock.Timestamp `json:"timestamp"`
}

// Store holds every character's memories. Each character's log is bounded by
// Capacity; adding beyond it evicts the oldest entry.
type Store struct {
	mu      sync.RWMutex
	entries map[int][]Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[int][]Entry)}
}

// Add appends an entry to owner's log, evicting the oldest when full.
func (s *Store) Add(owner int, text string, impact int, source string, ts clock.Timestamp) Entry {
	e := Entry{Text: text, Impact: impact, Source: source, Timestamp: ts}
	s.mu.Lock()
	s.entries[owner] = appendBounded(s.entries[owner], e)
	s.mu.Unlock()
	return e
}

func appendBounded(log []Entry, e Entry) []Entry {
	log = append(log, e)
	if over := len(log) - Capacity; over > 0 {
		// copy into a fresh slice so evicted entries are released
		log = slices.Clone(log[over:])
	}
	return log
}

// Recent returns up to n of owner's newest entries, oldest first.
func (s *Store) Recent(owner, n int) []Entry {
	if n <= 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.entries[owner]
	if n > len(log) {
		n = len(log)
	}
	return slices.Clone(log[len(log)-n:])
}

// FindByKeyword returns every entry whose text contains keyword, ignoring case.
func (s *Store) FindByKeyword(owner int, keyword string) []Entry {
	needle := fold(keyword)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries[owner] {
		if strings.Contains(fold(e.Text), needle) {
			out = append(out, e)
		}
	}
	return out
}

// ContainsText reports whether any of owner's entries contains substr exactly.
func (s *Store) ContainsText(owner int, substr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries[owner] {
		if strings.Contains(e.Text, substr) {
			return true
		}
	}
	return false
}

// All returns a copy of owner's log in chronological order.
func (s *Store) All(owner int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries[owner])
}

func (s *Store) Len(owner int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[owner])
}

// Clear forgets everything owner remembers.
func (s *Store) Clear(owner int) {
	s.mu.Lock()
	delete(s.entries, owner)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of every log.
func (s *Store) Snapshot() map[int][]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int][]Entry, len(s.entries))
	for owner, log := range s.entries {
		out[owner] = slices.Clone(log)
	}
	return out
}

// Restore replaces every log. Logs longer than Capacity keep their newest entries.
func (s *Store) Restore(entries map[int][]Entry) {
	next := make(map[int][]Entry, len(entries))
	for owner, log := range entries {
		if over := len(log) - Capacity; over > 0 {
			log = log[over:]
		}
		next[owner] = slices.Clone(log)
	}
	s.mu.Lock()
	s.entries = next
	s.mu.Unlock()
}

// fold case-folds text for comparison. Casers are not safe for concurrent use,
// so one is built per call.
func fold(text string) string {
	return cases.Fold().String(text)
}
