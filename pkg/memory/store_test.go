package memory

import (
	"fmt"
	"testing"

	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(minute int) clock.Timestamp {
	return clock.Timestamp{Day: 1, Hour: 8, Minute: minute}
}

func TestStore_EvictsOldestBeyondCapacity(t *testing.T) {
	s := NewStore()
	for i := 0; i < Capacity; i++ {
		s.Add(1, fmt.Sprintf("event %d", i), i, "test", ts(i))
	}
	require.Equal(t, Capacity, s.Len(1))

	s.Add(1, "the newest event", 5, "test", ts(59))

	all := s.All(1)
	assert.Len(t, all, Capacity)
	assert.Equal(t, "event 1", all[0].Text, "oldest entry should be evicted")
	assert.Equal(t, "the newest event", all[len(all)-1].Text)
	for _, e := range all {
		assert.NotEqual(t, "event 0", e.Text)
	}
}

func TestStore_NeverExceedsCapacity(t *testing.T) {
	s := NewStore()
	for i := 0; i < Capacity*3; i++ {
		s.Add(2, "x", 0, "test", ts(i%60))
		assert.LessOrEqual(t, s.Len(2), Capacity)
	}
}

func TestStore_Recent(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		s.Add(1, fmt.Sprintf("m%d", i), 0, "test", ts(i))
	}

	recent := s.Recent(1, 3)
	require.Len(t, recent, 3)
	assert.Equal(t, "m2", recent[0].Text)
	assert.Equal(t, "m4", recent[2].Text)

	assert.Len(t, s.Recent(1, 50), 5)
	assert.Nil(t, s.Recent(1, 0))
	assert.Empty(t, s.Recent(9, 3))
}

func TestStore_FindByKeyword(t *testing.T) {
	s := NewStore()
	s.Add(1, "The player gave me a FISH", 10, "dialogue", ts(0))
	s.Add(1, "Storm flooded the fields", -5, "world", ts(1))
	s.Add(1, "Shared a fish stew", 3, "dialogue", ts(2))

	found := s.FindByKeyword(1, "fish")
	require.Len(t, found, 2)
	assert.Equal(t, 10, found[0].Impact)
	assert.Equal(t, "Shared a fish stew", found[1].Text)

	assert.Empty(t, s.FindByKeyword(1, "dragon"))
}

func TestStore_ContainsTextIsCaseSensitive(t *testing.T) {
	s := NewStore()
	s.Add(1, "Saved the Mill", 10, "quest", ts(0))
	assert.True(t, s.ContainsText(1, "the Mill"))
	assert.False(t, s.ContainsText(1, "the mill"))
	assert.False(t, s.ContainsText(2, "Mill"))
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	s.Add(1, "original", 0, "test", ts(0))
	all := s.All(1)
	all[0].Text = "changed"
	assert.Equal(t, "original", s.All(1)[0].Text)
}

func TestStore_ClearAndRestore(t *testing.T) {
	s := NewStore()
	s.Add(1, "a", 0, "test", ts(0))
	s.Clear(1)
	assert.Equal(t, 0, s.Len(1))

	log := make([]Entry, Capacity+5)
	for i := range log {
		log[i] = Entry{Text: fmt.Sprintf("r%d", i)}
	}
	s.Restore(map[int][]Entry{3: log})
	restored := s.All(3)
	assert.Len(t, restored, Capacity)
	assert.Equal(t, "r5", restored[0].Text)

	snap := s.Snapshot()
	snap[3][0].Text = "mutated"
	assert.Equal(t, "r5", s.All(3)[0].Text)
}
