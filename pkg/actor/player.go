package actor

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/jwebster45206/d20"
	"gopkg.in/yaml.v3"
)

// Stats5e represents the six core ability scores
type Stats5e struct {
	Strength     int `json:"strength" yaml:"strength"`
	Dexterity    int `json:"dexterity" yaml:"dexterity"`
	Constitution int `json:"constitution" yaml:"constitution"`
	Intelligence int `json:"intelligence" yaml:"intelligence"`
	Wisdom       int `json:"wisdom" yaml:"wisdom"`
	Charisma     int `json:"charisma" yaml:"charisma"`
}

// ToAttributes converts Stats5e to a map for d20.Actor compatibility
func (s *Stats5e) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"constitution": s.Constitution,
		"intelligence": s.Intelligence,
		"wisdom":       s.Wisdom,
		"charisma":     s.Charisma,
	}
}

// PlayerSpec is the serializable definition for the player
type PlayerSpec struct {
	Name            string         `json:"name" yaml:"name"`
	Level           int            `json:"level" yaml:"level"`
	CompletedQuests []string       `json:"completed_quests,omitempty" yaml:"completed_quests,omitempty"`
	ActiveQuests    []string       `json:"active_quests,omitempty" yaml:"active_quests,omitempty"`
	Inventory       map[string]int `json:"inventory,omitempty" yaml:"inventory,omitempty"` // item kind -> count
	Stats           Stats5e        `json:"stats" yaml:"stats"`
	HP              int            `json:"hp,omitempty" yaml:"hp,omitempty"`
	MaxHP           int            `json:"max_hp" yaml:"max_hp"`
	AC              int            `json:"ac" yaml:"ac"`
	Attributes      map[string]int `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Player is the runtime player state the social core reads from.
// StartQuest is its only write surface used by dialogue.
type Player struct {
	mu    sync.RWMutex
	spec  PlayerSpec
	Actor *d20.Actor // Built at runtime from PlayerSpec
}

// NewPlayerFromSpec creates a Player and builds its d20 stat block
func NewPlayerFromSpec(spec *PlayerSpec) (*Player, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	if spec.Level < 0 {
		return nil, fmt.Errorf("player level cannot be negative: %d", spec.Level)
	}
	for item, n := range spec.Inventory {
		if n < 0 {
			return nil, fmt.Errorf("inventory item %q has negative count %d", item, n)
		}
	}

	allAttrs := spec.Stats.ToAttributes()
	maps.Copy(allAttrs, spec.Attributes)

	name := spec.Name
	if name == "" {
		name = "player"
	}
	actor, err := d20.NewActor(name).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(allAttrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	// Set current HP if different from max
	if spec.HP != spec.MaxHP && spec.HP > 0 {
		if err := actor.SetHP(spec.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}

	p := &Player{
		spec: PlayerSpec{
			Name:            spec.Name,
			Level:           spec.Level,
			CompletedQuests: slices.Clone(spec.CompletedQuests),
			ActiveQuests:    slices.Clone(spec.ActiveQuests),
			Inventory:       maps.Clone(spec.Inventory),
			Stats:           spec.Stats,
			HP:              spec.HP,
			MaxHP:           spec.MaxHP,
			AC:              spec.AC,
			Attributes:      maps.Clone(spec.Attributes),
		},
		Actor: actor,
	}
	if p.spec.Inventory == nil {
		p.spec.Inventory = make(map[string]int)
	}
	return p, nil
}

// LoadPlayer reads a player spec from a .json, .yaml or .yml file
func LoadPlayer(path string) (*Player, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read player file: %w", err)
	}

	var spec PlayerSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &spec)
	default:
		err = json.Unmarshal(data, &spec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal player spec: %w", err)
	}

	return NewPlayerFromSpec(&spec)
}

func (p *Player) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.spec.Name
}

func (p *Player) Level() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.spec.Level
}

func (p *Player) SetLevel(level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spec.Level = max(0, level)
}

// HasCompletedQuest reports whether questID is in the completed set.
func (p *Player) HasCompletedQuest(questID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Contains(p.spec.CompletedQuests, questID)
}

// ItemCount returns how many of an item kind the player holds.
func (p *Player) ItemCount(item string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.spec.Inventory[item]
}

// AddItem changes an item count, never going below zero.
func (p *Player) AddItem(item string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spec.Inventory[item] = max(0, p.spec.Inventory[item]+n)
}

// StartQuest records a quest start requested by dialogue. It returns false if
// the quest is already active or completed.
func (p *Player) StartQuest(questID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if questID == "" ||
		slices.Contains(p.spec.ActiveQuests, questID) ||
		slices.Contains(p.spec.CompletedQuests, questID) {
		return false
	}
	p.spec.ActiveQuests = append(p.spec.ActiveQuests, questID)
	return true
}

// CompleteQuest moves a quest to the completed set.
func (p *Player) CompleteQuest(questID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spec.ActiveQuests = slices.DeleteFunc(p.spec.ActiveQuests, func(q string) bool { return q == questID })
	if !slices.Contains(p.spec.CompletedQuests, questID) {
		p.spec.CompletedQuests = append(p.spec.CompletedQuests, questID)
	}
}

func (p *Player) ActiveQuests() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.spec.ActiveQuests)
}

// Spec returns a copy of the player's current state, reading HP from the Actor.
func (p *Player) Spec() PlayerSpec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.spec
	s.CompletedQuests = slices.Clone(s.CompletedQuests)
	s.ActiveQuests = slices.Clone(s.ActiveQuests)
	s.Inventory = maps.Clone(s.Inventory)
	s.Attributes = maps.Clone(s.Attributes)
	if p.Actor != nil {
		s.HP = p.Actor.HP()
		s.MaxHP = p.Actor.MaxHP()
		s.AC = p.Actor.AC()
	}
	return s
}

// Progress is the part of the player that changes during play and is saved.
type Progress struct {
	Level           int            `json:"level"`
	ActiveQuests    []string       `json:"active_quests,omitempty"`
	CompletedQuests []string       `json:"completed_quests,omitempty"`
	Inventory       map[string]int `json:"inventory,omitempty"`
	HP              int            `json:"hp"`
}

func (p *Player) Progress() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pr := Progress{
		Level:           p.spec.Level,
		ActiveQuests:    slices.Clone(p.spec.ActiveQuests),
		CompletedQuests: slices.Clone(p.spec.CompletedQuests),
		Inventory:       maps.Clone(p.spec.Inventory),
		HP:              p.spec.HP,
	}
	if p.Actor != nil {
		pr.HP = p.Actor.HP()
	}
	return pr
}

// Validate checks progress read back from a save.
func (pr Progress) Validate() error {
	if pr.Level < 0 {
		return fmt.Errorf("player level cannot be negative: %d", pr.Level)
	}
	if pr.HP < 0 {
		return fmt.Errorf("player HP cannot be negative: %d", pr.HP)
	}
	for item, n := range pr.Inventory {
		if n < 0 {
			return fmt.Errorf("inventory item %q has negative count %d", item, n)
		}
	}
	return nil
}

// SetProgress replaces the player's saved progress. Stats are left as authored.
func (p *Player) SetProgress(pr Progress) error {
	if err := pr.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Actor != nil && pr.HP > 0 {
		if err := p.Actor.SetHP(min(pr.HP, p.Actor.MaxHP())); err != nil {
			return fmt.Errorf("failed to set HP: %w", err)
		}
	}
	p.spec.Level = pr.Level
	p.spec.ActiveQuests = slices.Clone(pr.ActiveQuests)
	p.spec.CompletedQuests = slices.Clone(pr.CompletedQuests)
	p.spec.Inventory = maps.Clone(pr.Inventory)
	if p.spec.Inventory == nil {
		p.spec.Inventory = make(map[string]int)
	}
	p.spec.HP = pr.HP
	return nil
}
