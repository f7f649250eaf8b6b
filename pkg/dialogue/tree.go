package dialogue

import (
	"slices"

	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/conditionals"
)

const (
	// StartNodeID is preferred as the entry node when its conditions pass.
	StartNodeID = "start"
	// ExitTarget as an option's next node ends the conversation.
	ExitTarget = "exit"

	TraitModifier = 5
	AxisModifier  = 2
)

// Tree is a named, authored conversation. Trees are not modified once added
// to a Library.
type Tree struct {
	Name          string                   `json:"name" yaml:"name"`
	Priority      int                      `json:"priority,omitempty" yaml:"priority,omitempty"`
	Speakers      []int                    `json:"speakers,omitempty" yaml:"speakers,omitempty"` // empty means any character
	Conditions    []conditionals.Predicate `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	RequiredFlags []string                 `json:"required_flags,omitempty" yaml:"required_flags,omitempty"`
	StartFlags    []string                 `json:"start_flags,omitempty" yaml:"start_flags,omitempty"`
	Nodes         []Node                   `json:"nodes" yaml:"nodes"`
}

// SpokenBy reports whether automatic selection may offer the tree to a character.
func (t *Tree) SpokenBy(characterID int) bool {
	return len(t.Speakers) == 0 || slices.Contains(t.Speakers, characterID)
}

// Node returns the node with id.
func (t *Tree) Node(id string) (*Node, bool) {
	for i := range t.Nodes {
		if t.Nodes[i].ID == id {
			return &t.Nodes[i], true
		}
	}
	return nil, false
}

// Node is one line of character speech and the replies available to it.
type Node struct {
	ID         string                   `json:"id" yaml:"id"`
	Text       string                   `json:"text" yaml:"text"`
	Emotion    string                   `json:"emotion,omitempty" yaml:"emotion,omitempty"`
	Options    []Option                 `json:"options,omitempty" yaml:"options,omitempty"`
	Conditions []conditionals.Predicate `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	SetFlags   []string                 `json:"set_flags,omitempty" yaml:"set_flags,omitempty"`
}

// Option is a player reply and its consequences.
type Option struct {
	Text         string                   `json:"text" yaml:"text"`
	Next         string                   `json:"next,omitempty" yaml:"next,omitempty"`
	Relationship int                      `json:"relationship,omitempty" yaml:"relationship,omitempty"`
	Memory       string                   `json:"memory,omitempty" yaml:"memory,omitempty"`
	Quest        string                   `json:"quest,omitempty" yaml:"quest,omitempty"`
	SetFlags     []string                 `json:"set_flags,omitempty" yaml:"set_flags,omitempty"`
	Preferences  *Preferences             `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	Conditions   []conditionals.Predicate `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// IsExit reports whether choosing the option ends the conversation.
func (o Option) IsExit() bool {
	return o.Next == "" || o.Next == ExitTarget
}

// Preferences tune an option's relationship delta to the listener's personality.
// A nil or negative axis threshold is ignored.
type Preferences struct {
	PreferredTrait string `json:"preferred_trait,omitempty" yaml:"preferred_trait,omitempty"`
	DislikedTrait  string `json:"disliked_trait,omitempty" yaml:"disliked_trait,omitempty"`
	Openness       *int   `json:"openness,omitempty" yaml:"openness,omitempty"`
	Friendliness   *int   `json:"friendliness,omitempty" yaml:"friendliness,omitempty"`
	Ambition       *int   `json:"ambition,omitempty" yaml:"ambition,omitempty"`
}

// Adjust returns base modified by the listener's personality:
// +5 if the preferred trait is present, -5 if the disliked trait is present,
// and +2/-2 for each axis that meets/misses its threshold.
func (p *Preferences) Adjust(base int, personality actor.Personality) int {
	if p == nil {
		return base
	}
	delta := base
	if p.PreferredTrait != "" && personality.HasTrait(p.PreferredTrait) {
		delta += TraitModifier
	}
	if p.DislikedTrait != "" && personality.HasTrait(p.DislikedTrait) {
		delta -= TraitModifier
	}
	delta += axisModifier(p.Openness, personality.Openness)
	delta += axisModifier(p.Friendliness, personality.Friendliness)
	delta += axisModifier(p.Ambition, personality.Ambition)
	return delta
}

func axisModifier(threshold *int, value int) int {
	if threshold == nil || *threshold < 0 {
		return 0
	}
	if value >= *threshold {
		return AxisModifier
	}
	return -AxisModifier
}
