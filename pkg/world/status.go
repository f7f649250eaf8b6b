package world

import (
	"github.com/jwebster45206/npc-engine/pkg/activity"
	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/memory"
	"github.com/jwebster45206/npc-engine/pkg/relationship"
)

// RecentMemories is how many memories a status report includes.
const RecentMemories = 5

// CharacterStatus is a read-only view of one character for presentation.
type CharacterStatus struct {
	ID            int               `json:"id"`
	Name          string            `json:"name"`
	Traits        []string          `json:"traits,omitempty"`
	Activity      activity.Activity `json:"activity"`
	Relationship  int               `json:"relationship"`
	Tier          string            `json:"tier"`
	Memories      []memory.Entry    `json:"memories,omitempty"`
	Flags         []string          `json:"flags,omitempty"`
	DialogueCount int               `json:"dialogue_count"`
	Conversing    bool              `json:"conversing"`
	Trees         []string          `json:"trees,omitempty"`
}

// Status describes a character as the player sees them.
func (w *World) Status(id int) (CharacterStatus, bool) {
	c, ok := w.Registry.Get(id)
	if !ok {
		return CharacterStatus{}, false
	}
	a, _ := w.Activity(id)
	score := w.Ledger.Get(id, actor.PlayerID)
	return CharacterStatus{
		ID:            c.ID,
		Name:          c.Name,
		Traits:        c.Personality.Clone().Traits,
		Activity:      a,
		Relationship:  score,
		Tier:          relationship.Tier(score),
		Memories:      w.Memory.Recent(id, RecentMemories),
		Flags:         w.Flags.All(id),
		DialogueCount: w.History.Count(id),
		Conversing:    w.Registry.IsConversing(id),
		Trees:         w.Dialogue.EligibleTrees(id),
	}, true
}

// Statuses returns every character's status in registration order.
func (w *World) Statuses() []CharacterStatus {
	chars := w.Registry.List()
	out := make([]CharacterStatus, 0, len(chars))
	for _, c := range chars {
		if s, ok := w.Status(c.ID); ok {
			out = append(out, s)
		}
	}
	return out
}
