package actor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlayerSpec() *PlayerSpec {
	return &PlayerSpec{
		Name:            "Wren",
		Level:           4,
		CompletedQuests: []string{"lost_lamb"},
		Inventory:       map[string]int{"fish": 3},
		Stats:           Stats5e{Strength: 12, Dexterity: 14, Constitution: 13, Intelligence: 10, Wisdom: 11, Charisma: 15},
		HP:              18,
		MaxHP:           24,
		AC:              13,
		Attributes:      map[string]int{"survival": 4},
	}
}

func TestNewPlayerFromSpec(t *testing.T) {
	p, err := NewPlayerFromSpec(testPlayerSpec())
	require.NoError(t, err)
	require.NotNil(t, p.Actor)

	assert.Equal(t, "Wren", p.Name())
	assert.Equal(t, 4, p.Level())
	assert.Equal(t, 24, p.Actor.MaxHP())
	assert.Equal(t, 18, p.Actor.HP())
	assert.Equal(t, 13, p.Actor.AC())

	survival, ok := p.Actor.Attribute("survival")
	assert.True(t, ok)
	assert.Equal(t, 4, survival)

	charisma, ok := p.Actor.Attribute("charisma")
	assert.True(t, ok)
	assert.Equal(t, 15, charisma)
}

func TestNewPlayerFromSpec_Invalid(t *testing.T) {
	_, err := NewPlayerFromSpec(nil)
	assert.Error(t, err)

	spec := testPlayerSpec()
	spec.Level = -1
	_, err = NewPlayerFromSpec(spec)
	assert.Error(t, err)

	spec = testPlayerSpec()
	spec.Inventory["fish"] = -2
	_, err = NewPlayerFromSpec(spec)
	assert.Error(t, err)
}

func TestPlayer_Quests(t *testing.T) {
	p, err := NewPlayerFromSpec(testPlayerSpec())
	require.NoError(t, err)

	assert.True(t, p.HasCompletedQuest("lost_lamb"))
	assert.False(t, p.HasCompletedQuest("mill_repair"))

	assert.True(t, p.StartQuest("mill_repair"))
	assert.False(t, p.StartQuest("mill_repair"), "already active")
	assert.False(t, p.StartQuest("lost_lamb"), "already completed")
	assert.False(t, p.StartQuest(""))
	assert.Equal(t, []string{"mill_repair"}, p.ActiveQuests())

	p.CompleteQuest("mill_repair")
	assert.Empty(t, p.ActiveQuests())
	assert.True(t, p.HasCompletedQuest("mill_repair"))
}

func TestPlayer_Inventory(t *testing.T) {
	p, err := NewPlayerFromSpec(testPlayerSpec())
	require.NoError(t, err)

	assert.Equal(t, 3, p.ItemCount("fish"))
	assert.Equal(t, 0, p.ItemCount("ore"))

	p.AddItem("ore", 2)
	p.AddItem("fish", -10)
	assert.Equal(t, 2, p.ItemCount("ore"))
	assert.Equal(t, 0, p.ItemCount("fish"))
}

func TestPlayer_SpecIsCopy(t *testing.T) {
	spec := testPlayerSpec()
	p, err := NewPlayerFromSpec(spec)
	require.NoError(t, err)

	spec.Inventory["fish"] = 99
	assert.Equal(t, 3, p.ItemCount("fish"), "player must not alias the input spec")

	out := p.Spec()
	out.Inventory["fish"] = 0
	assert.Equal(t, 3, p.ItemCount("fish"))
	assert.Equal(t, 18, out.HP)
}

func TestLoadPlayer(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "player.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
name: Wren
level: 2
max_hp: 10
ac: 12
inventory:
  fish: 1
`), 0644))

	p, err := LoadPlayer(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Level())
	assert.Equal(t, 1, p.ItemCount("fish"))

	jsonPath := filepath.Join(dir, "player.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name":"Ash","level":7,"max_hp":20,"ac":14}`), 0644))
	p, err = LoadPlayer(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Level())

	_, err = LoadPlayer(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{ invalid json }"), 0644))
	_, err = LoadPlayer(badPath)
	assert.Error(t, err)
}

func TestPlayer_ProgressRoundTrip(t *testing.T) {
	p, err := NewPlayerFromSpec(testPlayerSpec())
	require.NoError(t, err)
	require.True(t, p.StartQuest("fetch_flour"))
	p.AddItem("coin", 5)

	saved := p.Progress()
	assert.Equal(t, 18, saved.HP)

	fresh, err := NewPlayerFromSpec(testPlayerSpec())
	require.NoError(t, err)
	require.NoError(t, fresh.SetProgress(saved))

	assert.Equal(t, []string{"fetch_flour"}, fresh.ActiveQuests())
	assert.Equal(t, 5, fresh.ItemCount("coin"))
	assert.Equal(t, 18, fresh.Actor.HP())

	assert.Error(t, fresh.SetProgress(Progress{Level: -1}))
	assert.Error(t, fresh.SetProgress(Progress{Level: 2, HP: -3}))
	assert.Equal(t, 4, fresh.Level())
	assert.Equal(t, 18, fresh.Actor.HP())
}
