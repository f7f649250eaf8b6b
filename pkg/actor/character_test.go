package actor

import (
	"testing"

	"github.com/jwebster45206/npc-engine/pkg/activity"
	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersonality(t *testing.T) {
	p := NewPersonality([]string{"Brave", "brave", "", "curious"}, 150, -10, 40)
	assert.Equal(t, []string{"Brave", "curious"}, p.Traits)
	assert.Equal(t, 100, p.Openness)
	assert.Equal(t, 0, p.Friendliness)
	assert.Equal(t, 40, p.Ambition)

	assert.True(t, p.HasTrait("BRAVE"))
	assert.False(t, p.HasTrait("greedy"))
	assert.False(t, p.HasTrait(""))
}

func TestPersonality_Clone(t *testing.T) {
	p := NewPersonality([]string{"kind"}, 1, 2, 3)
	c := p.Clone()
	c.Traits[0] = "cruel"
	assert.Equal(t, "kind", p.Traits[0])
}

func testSpec() *CharacterSpec {
	return &CharacterSpec{
		ID:          3,
		Name:        "Mira",
		Home:        "bakery",
		Personality: Personality{Traits: []string{"kind"}, Openness: 60, Friendliness: 120, Ambition: 30},
		Schedule: activity.Schedule{
			{TimeOfDay: clock.Morning, Kind: activity.KindWork, Location: "bakery"},
		},
	}
}

func TestNewCharacterFromSpec(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	require.NoError(t, err)
	assert.Equal(t, 100, c.Personality.Friendliness, "axes are clamped")

	a := c.CurrentActivity(clock.Morning)
	assert.Equal(t, activity.KindWork, a.Kind)

	a = c.CurrentActivity(clock.Night)
	assert.Equal(t, activity.KindLeisure, a.Kind)
	assert.Equal(t, "bakery", a.Location)
}

func TestNewCharacterFromSpec_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CharacterSpec)
	}{
		{"player id", func(s *CharacterSpec) { s.ID = PlayerID }},
		{"missing name", func(s *CharacterSpec) { s.Name = " " }},
		{"bad schedule", func(s *CharacterSpec) { s.Schedule[0].Kind = "juggle" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testSpec()
			tt.mutate(spec)
			_, err := NewCharacterFromSpec(spec)
			assert.Error(t, err)
		})
	}

	_, err := NewCharacterFromSpec(nil)
	assert.Error(t, err)
}

func TestCharacter_Clone(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	require.NoError(t, err)

	clone := c.Clone()
	clone.Schedule[0].Location = "mill"
	clone.Personality.Traits[0] = "cruel"
	assert.Equal(t, "bakery", c.Schedule[0].Location)
	assert.Equal(t, "kind", c.Personality.Traits[0])
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, _ := NewCharacterFromSpec(&CharacterSpec{ID: 2, Name: "Bo"})
	b, _ := NewCharacterFromSpec(&CharacterSpec{ID: 1, Name: "Al"})

	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))
	assert.Error(t, r.Register(a), "duplicate id")
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&Character{ID: 0, Name: "player"}))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Bo", list[0].Name, "registration order is kept")
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "Al", got.Name)
	_, ok = r.Get(9)
	assert.False(t, ok)

	r.SetConversing(1, true)
	assert.True(t, r.IsConversing(1))
	r.SetConversing(1, false)
	assert.False(t, r.IsConversing(1))
}
