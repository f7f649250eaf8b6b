package conditionals

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/clock"
)

// Kind selects what a predicate tests.
type Kind string

const (
	KindRelationship   Kind = "relationship"
	KindMemory         Kind = "memory"
	KindQuestCompleted Kind = "quest_completed"
	KindTimeOfDay      Kind = "time_of_day"
	KindLocation       Kind = "location" // reserved; evaluated outside the core
	KindPlayerLevel    Kind = "player_level"
	KindItemOwned      Kind = "item_owned"
	KindFlag           Kind = "flag"
	KindDialogueCount  Kind = "dialogue_count"
)

var kindNames = map[string]Kind{
	"relationship":    KindRelationship,
	"memory":          KindMemory,
	"quest_completed": KindQuestCompleted,
	"time_of_day":     KindTimeOfDay,
	"location":        KindLocation,
	"player_level":    KindPlayerLevel,
	"item_owned":      KindItemOwned,
	"flag":            KindFlag,
	"dialogue_count":  KindDialogueCount,
}

func ParseKind(s string) (Kind, error) {
	k, ok := kindNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown predicate kind %q", s)
	}
	return k, nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Op is an integer comparison operator.
type Op string

const (
	OpEqual          Op = "eq"
	OpNotEqual       Op = "ne"
	OpGreater        Op = "gt"
	OpLess           Op = "lt"
	OpGreaterOrEqual Op = "ge"
	OpLessOrEqual    Op = "le"
)

var opNames = map[string]Op{
	"eq": OpEqual, "==": OpEqual, "=": OpEqual, "equal": OpEqual,
	"ne": OpNotEqual, "!=": OpNotEqual, "not_equal": OpNotEqual,
	"gt": OpGreater, ">": OpGreater, "greater": OpGreater,
	"lt": OpLess, "<": OpLess, "less": OpLess,
	"ge": OpGreaterOrEqual, ">=": OpGreaterOrEqual, "greater_or_equal": OpGreaterOrEqual,
	"le": OpLessOrEqual, "<=": OpLessOrEqual, "less_or_equal": OpLessOrEqual,
}

func ParseOp(s string) (Op, error) {
	op, ok := opNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown comparison operator %q", s)
	}
	return op, nil
}

func (o *Op) UnmarshalText(text []byte) error {
	parsed, err := ParseOp(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Compare applies op to (actual, threshold). Unknown operators never match.
func Compare(op Op, actual, threshold int) bool {
	switch op {
	case OpEqual:
		return actual == threshold
	case OpNotEqual:
		return actual != threshold
	case OpGreater:
		return actual > threshold
	case OpLess:
		return actual < threshold
	case OpGreaterOrEqual:
		return actual >= threshold
	case OpLessOrEqual:
		return actual <= threshold
	default:
		return false
	}
}

// Predicate is one authored condition. Which fields are read depends on Kind:
//
//	relationship, player_level, dialogue_count: Op, Value
//	memory: Text (substring)
//	quest_completed: Text (quest id)
//	time_of_day: TimeOfDay
//	location: Text (not evaluated here)
//	item_owned: Text (item kind), Value (minimum count)
//	flag: Text (flag), Absent (true = flag must not be set)
type Predicate struct {
	Kind      Kind            `json:"kind" yaml:"kind"`
	Op        Op              `json:"op,omitempty" yaml:"op,omitempty"`
	Value     int             `json:"value,omitempty" yaml:"value,omitempty"`
	Text      string          `json:"text,omitempty" yaml:"text,omitempty"`
	TimeOfDay clock.TimeOfDay `json:"time_of_day,omitempty" yaml:"time_of_day,omitempty"`
	Absent    bool            `json:"absent,omitempty" yaml:"absent,omitempty"`
}

// Validate reports malformed authored data so it can be rejected at load time.
func (p Predicate) Validate() error {
	if _, err := ParseKind(string(p.Kind)); err != nil {
		return err
	}
	switch p.Kind {
	case KindRelationship, KindPlayerLevel, KindDialogueCount:
		if _, err := ParseOp(string(p.Op)); err != nil {
			return fmt.Errorf("%s predicate: %w", p.Kind, err)
		}
	case KindMemory, KindQuestCompleted, KindFlag, KindItemOwned:
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("%s predicate: text is required", p.Kind)
		}
		if p.Kind == KindItemOwned && p.Value < 0 {
			return fmt.Errorf("item_owned predicate: negative minimum count %d", p.Value)
		}
	case KindTimeOfDay:
		if _, err := clock.ParseTimeOfDay(string(p.TimeOfDay)); err != nil {
			return fmt.Errorf("time_of_day predicate: %w", err)
		}
	}
	return nil
}

// ValidateAll validates every predicate in a list.
func ValidateAll(preds []Predicate) error {
	for i, p := range preds {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("predicate %d: %w", i, err)
		}
	}
	return nil
}

// Flags returns the flag names a predicate list refers to.
func Flags(preds []Predicate) []string {
	var out []string
	for _, p := range preds {
		if p.Kind == KindFlag {
			out = append(out, p.Text)
		}
	}
	return out
}
