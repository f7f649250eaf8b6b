package dialogue

import (
	"fmt"
	"testing"

	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagStore(t *testing.T) {
	s := NewFlagStore()
	assert.Equal(t, []string{"a", "b"}, s.Add(1, "a", "b", "a", ""))
	assert.Equal(t, []string{"c"}, s.Add(1, "b", "c"))
	assert.True(t, s.Has(1, "b"))
	assert.False(t, s.Has(2, "b"))
	assert.Equal(t, []string{"a", "b", "c"}, s.All(1))

	s.rollback(1, []string{"c"})
	assert.Equal(t, []string{"a", "b"}, s.All(1))

	snap := s.Snapshot()
	s.Add(1, "d")
	assert.Equal(t, []string{"a", "b"}, snap[1])

	s.Restore(map[int][]string{3: {"x", "x", "", "y"}})
	assert.False(t, s.Has(1, "a"))
	assert.Equal(t, []string{"x", "y"}, s.All(3))
}

func TestHistoryStore_Capacity(t *testing.T) {
	h := NewHistoryStore()
	for i := range HistoryCapacity + 5 {
		h.Add(1, HistoryEntry{Tree: "t", Node: "n", Option: fmt.Sprintf("opt %d", i),
			Timestamp: clock.Timestamp{Day: 1, Minute: i % 60}})
	}
	assert.Equal(t, HistoryCapacity, h.Count(1))

	all := h.All(1)
	require.Len(t, all, HistoryCapacity)
	assert.Equal(t, "opt 5", all[0].Option)
	assert.Equal(t, fmt.Sprintf("opt %d", HistoryCapacity+4), all[len(all)-1].Option)
	assert.Equal(t, 0, h.Count(2))
}

func TestHistoryStore_SnapshotIsDeep(t *testing.T) {
	h := NewHistoryStore()
	h.Add(1, HistoryEntry{Option: "hi", Flags: []string{"f"}})

	snap := h.Snapshot()
	snap[1][0].Flags[0] = "changed"
	assert.Equal(t, "f", h.All(1)[0].Flags[0])

	h.Restore(map[int][]HistoryEntry{2: {{Option: "x"}}})
	assert.Equal(t, 0, h.Count(1))
	assert.Equal(t, 1, h.Count(2))
}
