package conditionals

import "github.com/jwebster45206/npc-engine/pkg/clock"

// CharacterView is the character-side state a predicate can see.
// These small views avoid import cycles with the dialogue and world packages.
type CharacterView interface {
	RelationshipWithPlayer() int
	RemembersText(substr string) bool
	HasFlag(flag string) bool
	DialogueCount() int
}

// PlayerView is the player-side state a predicate can see.
type PlayerView interface {
	Level() int
	HasCompletedQuest(questID string) bool
	ItemCount(item string) int
}

// ClockView exposes the current time bucket.
type ClockView interface {
	TimeOfDay() clock.TimeOfDay
}

// Evaluate tests a single predicate against the joint state of a character,
// the player and the clock. Missing views and malformed predicates evaluate false.
func Evaluate(p Predicate, character CharacterView, player PlayerView, clk ClockView) bool {
	switch p.Kind {
	case KindRelationship:
		return character != nil && Compare(p.Op, character.RelationshipWithPlayer(), p.Value)
	case KindMemory:
		return character != nil && p.Text != "" && character.RemembersText(p.Text)
	case KindQuestCompleted:
		return player != nil && player.HasCompletedQuest(p.Text)
	case KindTimeOfDay:
		return clk != nil && clk.TimeOfDay() == p.TimeOfDay
	case KindLocation:
		// Location checks belong to the navigation layer; the core does not gate on them.
		return true
	case KindPlayerLevel:
		return player != nil && Compare(p.Op, player.Level(), p.Value)
	case KindItemOwned:
		return player != nil && player.ItemCount(p.Text) >= p.Value
	case KindFlag:
		if character == nil || p.Text == "" {
			return false
		}
		return character.HasFlag(p.Text) != p.Absent
	case KindDialogueCount:
		return character != nil && Compare(p.Op, character.DialogueCount(), p.Value)
	default:
		return false
	}
}

// EvaluateAll is the conjunction of preds. An empty list is true.
func EvaluateAll(preds []Predicate, character CharacterView, player PlayerView, clk ClockView) bool {
	for _, p := range preds {
		if !Evaluate(p, character, player, clk) {
			return false
		}
	}
	return true
}
