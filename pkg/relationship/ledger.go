package relationship

import (
	"maps"
	"slices"
	"sync"
)

const (
	MinScore = -100
	MaxScore = 100
)

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(v int) int {
	return max(MinScore, min(MaxScore, v))
}

// Ledger holds every character's relationship scores keyed by (owner, target).
// Get, Set and Modify are the only mutation surface.
type Ledger struct {
	mu     sync.RWMutex
	scores map[int]map[int]int
}

func NewLedger() *Ledger {
	return &Ledger{scores: make(map[int]map[int]int)}
}

// Get returns the stored score or 0 for an unknown target.
func (l *Ledger) Get(owner, target int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.scores[owner][target]
}

// Set stores value clamped to range and returns the stored value.
func (l *Ledger) Set(owner, target, value int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setLocked(owner, target, value)
}

// Modify adds delta to the current score and returns the stored value.
// Deltas beyond the width of the range saturate instead of overflowing.
func (l *Ledger) Modify(owner, target, delta int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	const span = MaxScore - MinScore
	delta = max(-span, min(span, delta))
	return l.setLocked(owner, target, l.scores[owner][target]+delta)
}

func (l *Ledger) setLocked(owner, target, value int) int {
	row, ok := l.scores[owner]
	if !ok {
		row = make(map[int]int)
		l.scores[owner] = row
	}
	v := Clamp(value)
	row[target] = v
	return v
}

// Targets lists the ids owner has a stored score for, ascending.
func (l *Ledger) Targets(owner int) []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.scores[owner]))
}

// Snapshot returns a deep copy of every score.
func (l *Ledger) Snapshot() map[int]map[int]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[int]map[int]int, len(l.scores))
	for owner, row := range l.scores {
		out[owner] = maps.Clone(row)
	}
	return out
}

// Restore replaces all scores. Values are clamped on the way in.
func (l *Ledger) Restore(scores map[int]map[int]int) {
	next := make(map[int]map[int]int, len(scores))
	for owner, row := range scores {
		r := make(map[int]int, len(row))
		for target, v := range row {
			r[target] = Clamp(v)
		}
		next[owner] = r
	}
	l.mu.Lock()
	l.scores = next
	l.mu.Unlock()
}

// Tier labels a score for display.
func Tier(score int) string {
	switch {
	case score <= -60:
		return "hostile"
	case score <= -20:
		return "unfriendly"
	case score < 20:
		return "neutral"
	case score < 60:
		return "friendly"
	default:
		return "devoted"
	}
}
