package dialogue

import (
	"testing"

	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestPreferencesAdjust(t *testing.T) {
	p := actor.NewPersonality([]string{"curious", "greedy"}, 80, 20, 50)

	tests := []struct {
		name  string
		prefs *Preferences
		base  int
		want  int
	}{
		{"nil preferences", nil, 10, 10},
		{"preferred trait present", &Preferences{PreferredTrait: "Curious"}, 10, 15},
		{"preferred trait absent", &Preferences{PreferredTrait: "brave"}, 10, 10},
		{"disliked trait present", &Preferences{DislikedTrait: "greedy"}, 10, 5},
		{"axis met", &Preferences{Openness: intPtr(60)}, 0, 2},
		{"axis missed", &Preferences{Friendliness: intPtr(60)}, 0, -2},
		{"negative threshold ignored", &Preferences{Ambition: intPtr(-1)}, 3, 3},
		{"threshold equal counts as met", &Preferences{Ambition: intPtr(50)}, 0, 2},
		{"combined", &Preferences{
			PreferredTrait: "curious",
			DislikedTrait:  "greedy",
			Openness:       intPtr(50),
			Friendliness:   intPtr(50),
		}, -10, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.prefs.Adjust(tt.base, p))
		})
	}
}

func TestTreeValidate(t *testing.T) {
	tests := []struct {
		name    string
		tree    Tree
		wantErr string
	}{
		{"missing name", Tree{Nodes: []Node{{ID: "a"}}}, "name is required"},
		{"no nodes", Tree{Name: "t"}, "has no nodes"},
		{"empty node id", Tree{Name: "t", Nodes: []Node{{Text: "hi"}}}, "has no id"},
		{"reserved id", Tree{Name: "t", Nodes: []Node{{ID: ExitTarget}}}, "reserved"},
		{"duplicate id", Tree{Name: "t", Nodes: []Node{{ID: "a"}, {ID: "a"}}}, "duplicate node id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tree.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLibrary_DanglingReferences(t *testing.T) {
	tr := &Tree{Name: "t", Nodes: []Node{{ID: "start", Options: []Option{
		{Text: "ok", Next: "missing"},
		{Text: "bye", Next: ExitTarget},
		{Text: "also bye"},
	}}}}

	lenient := NewLibrary(false)
	dangling, err := lenient.Add(tr)
	require.NoError(t, err)
	assert.Len(t, dangling, 1)
	assert.Equal(t, 1, lenient.Len())

	strict := NewLibrary(true)
	_, err = strict.Add(tr)
	assert.ErrorIs(t, err, ErrDanglingReference)
	assert.Equal(t, 0, strict.Len())
}

func TestLibrary_RejectsDuplicateNames(t *testing.T) {
	lib := NewLibrary(false)
	_, err := lib.Add(greeting("a", 0))
	require.NoError(t, err)
	_, err = lib.Add(greeting("a", 1))
	assert.Error(t, err)

	got, ok := lib.Get("a")
	require.True(t, ok)
	assert.Equal(t, 0, got.Priority)
}

func TestDecodeTree(t *testing.T) {
	data := []byte(`
name: baker_morning
priority: 3
conditions:
  - kind: time_of_day
    time_of_day: morning
nodes:
  - id: start
    text: Fresh loaves!
    emotion: happy
    options:
      - text: One please
        next: exit
        relationship: 2
        preferences:
          preferred_trait: generous
          friendliness: 40
        conditions:
          - kind: item_owned
            text: coin
            value: 1
`)
	tr, err := DecodeTree(data, ".yaml", true)
	require.NoError(t, err)
	require.NoError(t, tr.Validate())
	assert.Equal(t, "baker_morning", tr.Name)
	assert.Equal(t, 3, tr.Priority)
	require.Len(t, tr.Nodes, 1)
	opt := tr.Nodes[0].Options[0]
	assert.True(t, opt.IsExit())
	require.NotNil(t, opt.Preferences)
	assert.Equal(t, 40, *opt.Preferences.Friendliness)
	assert.Nil(t, opt.Preferences.Openness)

	_, err = DecodeTree([]byte(`{"name":"x","bogus":1,"nodes":[]}`), ".json", true)
	assert.Error(t, err)

	_, err = DecodeTree([]byte(`{"name":"x","bogus":1,"nodes":[]}`), ".json", false)
	assert.NoError(t, err)

	_, err = DecodeTree(data, ".toml", false)
	assert.Error(t, err)
}
