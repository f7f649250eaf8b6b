package dialogue

import (
	"slices"
	"sync"
)

// FlagStore holds each character's dialogue flags in the order they were set.
// Flags are only ever added during play.
type FlagStore struct {
	mu    sync.RWMutex
	flags map[int][]string
}

func NewFlagStore() *FlagStore {
	return &FlagStore{flags: make(map[int][]string)}
}

// Add sets flags for owner and returns the ones that were not already set.
func (s *FlagStore) Add(owner int, flags ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var added []string
	for _, f := range flags {
		if f == "" || slices.Contains(s.flags[owner], f) {
			continue
		}
		s.flags[owner] = append(s.flags[owner], f)
		added = append(added, f)
	}
	return added
}

func (s *FlagStore) Has(owner int, flag string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.flags[owner], flag)
}

// All returns owner's flags in the order they were set.
func (s *FlagStore) All(owner int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.flags[owner])
}

// rollback removes flags set by a session start that never became active.
func (s *FlagStore) rollback(owner int, flags []string) {
	if len(flags) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[owner] = slices.DeleteFunc(s.flags[owner], func(f string) bool {
		return slices.Contains(flags, f)
	})
	if len(s.flags[owner]) == 0 {
		delete(s.flags, owner)
	}
}

func (s *FlagStore) Snapshot() map[int][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int][]string, len(s.flags))
	for owner, f := range s.flags {
		out[owner] = slices.Clone(f)
	}
	return out
}

// Restore replaces all flags, dropping duplicates and empty names.
func (s *FlagStore) Restore(flags map[int][]string) {
	next := make(map[int][]string, len(flags))
	for owner, list := range flags {
		var clean []string
		for _, f := range list {
			if f != "" && !slices.Contains(clean, f) {
				clean = append(clean, f)
			}
		}
		if len(clean) > 0 {
			next[owner] = clean
		}
	}
	s.mu.Lock()
	s.flags = next
	s.mu.Unlock()
}
