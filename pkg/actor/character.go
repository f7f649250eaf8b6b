package actor

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/activity"
	"github.com/jwebster45206/npc-engine/pkg/clock"
)

// PlayerID is reserved for the player in relationship and flag keys.
const PlayerID = 0

// CharacterSpec is the authored form of a character.
type CharacterSpec struct {
	ID          int               `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Home        string            `json:"home" yaml:"home"`
	Personality Personality       `json:"personality" yaml:"personality"`
	Schedule    activity.Schedule `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// Character is a non-player character. Characters are read-only once built.
type Character struct {
	ID          int
	Name        string
	Home        string // fallback location when the schedule has nothing
	Personality Personality
	Schedule    activity.Schedule
}

// NewCharacterFromSpec validates a spec and builds the runtime character.
func NewCharacterFromSpec(spec *CharacterSpec) (*Character, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	if spec.ID <= PlayerID {
		return nil, fmt.Errorf("character %q: id must be positive, got %d", spec.Name, spec.ID)
	}
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("character %d: name is required", spec.ID)
	}
	if err := spec.Schedule.Validate(); err != nil {
		return nil, fmt.Errorf("character %q: %w", spec.Name, err)
	}

	p := spec.Personality
	return &Character{
		ID:          spec.ID,
		Name:        spec.Name,
		Home:        spec.Home,
		Personality: NewPersonality(p.Traits, p.Openness, p.Friendliness, p.Ambition),
		Schedule:    spec.Schedule.Clone(),
	}, nil
}

// Clone returns a deep copy of the character.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	return &Character{
		ID:          c.ID,
		Name:        c.Name,
		Home:        c.Home,
		Personality: c.Personality.Clone(),
		Schedule:    c.Schedule.Clone(),
	}
}

// CurrentActivity resolves what the character should be doing in the given bucket.
func (c *Character) CurrentActivity(tod clock.TimeOfDay) activity.Activity {
	return activity.Resolve(c.Schedule, tod, c.Home)
}
