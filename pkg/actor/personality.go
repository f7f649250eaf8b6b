package actor

import (
	"slices"

	"golang.org/x/text/cases"
)

const (
	MinAxis = 0
	MaxAxis = 100
)

// Personality is fixed when a character is created. There is no mutation API;
// Clone exists for save/restore and previews.
type Personality struct {
	Traits       []string `json:"traits,omitempty" yaml:"traits,omitempty"`
	Openness     int      `json:"openness" yaml:"openness"`
	Friendliness int      `json:"friendliness" yaml:"friendliness"`
	Ambition     int      `json:"ambition" yaml:"ambition"`
}

// NewPersonality normalises authored values: axes are clamped to [0,100] and
// traits are de-duplicated ignoring case, keeping the first spelling.
func NewPersonality(traits []string, openness, friendliness, ambition int) Personality {
	p := Personality{
		Openness:     clampAxis(openness),
		Friendliness: clampAxis(friendliness),
		Ambition:     clampAxis(ambition),
	}
	seen := make(map[string]bool, len(traits))
	for _, t := range traits {
		key := cases.Fold().String(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		p.Traits = append(p.Traits, t)
	}
	return p
}

func clampAxis(v int) int {
	return max(MinAxis, min(MaxAxis, v))
}

// HasTrait reports whether the personality carries trait, ignoring case.
func (p Personality) HasTrait(trait string) bool {
	if trait == "" {
		return false
	}
	folder := cases.Fold()
	want := folder.String(trait)
	for _, t := range p.Traits {
		if folder.String(t) == want {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (p Personality) Clone() Personality {
	p.Traits = slices.Clone(p.Traits)
	return p
}
