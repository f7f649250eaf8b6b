package activity

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/clock"
)

// DefaultDuration is used for the fallback activity and for entries with no duration.
const DefaultDuration = 60

// Kind is what a character is doing.
type Kind string

const (
	KindSleep     Kind = "sleep"
	KindWork      Kind = "work"
	KindEat       Kind = "eat"
	KindSocialize Kind = "socialize"
	KindPatrol    Kind = "patrol"
	KindShop      Kind = "shop"
	KindFarm      Kind = "farm"
	KindCraft     Kind = "craft"
	KindTravel    Kind = "travel"
	KindLeisure   Kind = "leisure"
	KindTalk      Kind = "talk"
)

// kinds is built once; authored data is checked against it at load time.
var kinds = map[string]Kind{
	"sleep":     KindSleep,
	"work":      KindWork,
	"eat":       KindEat,
	"socialize": KindSocialize,
	"patrol":    KindPatrol,
	"shop":      KindShop,
	"farm":      KindFarm,
	"craft":     KindCraft,
	"travel":    KindTravel,
	"leisure":   KindLeisure,
	"talk":      KindTalk,
}

// ParseKind validates an authored activity name.
func ParseKind(s string) (Kind, error) {
	k, ok := kinds[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown activity kind %q", s)
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

// Entry is one authored line of a schedule.
type Entry struct {
	TimeOfDay clock.TimeOfDay `json:"time_of_day" yaml:"time_of_day"`
	Kind      Kind            `json:"activity" yaml:"activity"`
	Location  string          `json:"location" yaml:"location"`
	TargetID  *int            `json:"target_id,omitempty" yaml:"target_id,omitempty"`
	Duration  int             `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Schedule is an ordered list of entries. If several entries share a bucket,
// the first authored one wins.
type Schedule []Entry

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	for i, e := range s {
		out[i] = e
		if e.TargetID != nil {
			id := *e.TargetID
			out[i].TargetID = &id
		}
	}
	return out
}

// Validate checks that every entry names a known bucket and activity.
func (s Schedule) Validate() error {
	for i, e := range s {
		if _, err := clock.ParseTimeOfDay(string(e.TimeOfDay)); err != nil {
			return fmt.Errorf("schedule entry %d: %w", i, err)
		}
		if _, err := ParseKind(string(e.Kind)); err != nil {
			return fmt.Errorf("schedule entry %d: %w", i, err)
		}
		if e.Duration < 0 {
			return fmt.Errorf("schedule entry %d: negative duration %d", i, e.Duration)
		}
	}
	return nil
}

// Activity is the derived "what is this character doing right now" value.
// Duration is in game minutes and is consumed by external schedulers.
type Activity struct {
	Kind     Kind   `json:"kind"`
	Location string `json:"location"`
	TargetID *int   `json:"target_id,omitempty"`
	Duration int    `json:"duration"`
}

// Equal compares two activities by value, including the target id.
func (a Activity) Equal(b Activity) bool {
	if a.Kind != b.Kind || a.Location != b.Location || a.Duration != b.Duration {
		return false
	}
	if a.TargetID == nil || b.TargetID == nil {
		return a.TargetID == nil && b.TargetID == nil
	}
	return *a.TargetID == *b.TargetID
}

// Resolve returns the activity scheduled for the given bucket. When no entry
// matches, the character is at leisure at the fallback location.
func Resolve(schedule Schedule, tod clock.TimeOfDay, fallbackLocation string) Activity {
	for _, e := range schedule {
		if e.TimeOfDay != tod {
			continue
		}
		a := Activity{
			Kind:     e.Kind,
			Location: e.Location,
			Duration: e.Duration,
		}
		if a.Duration == 0 {
			a.Duration = DefaultDuration
		}
		if e.TargetID != nil {
			id := *e.TargetID
			a.TargetID = &id
		}
		return a
	}

	return Activity{
		Kind:     KindLeisure,
		Location: fallbackLocation,
		Duration: DefaultDuration,
	}
}

// Talking is the activity of a character held in conversation.
func Talking(location string, targetID int) Activity {
	return Activity{
		Kind:     KindTalk,
		Location: location,
		TargetID: &targetID,
		Duration: DefaultDuration,
	}
}
