// Package world owns one running simulation: the clock, every character and
// their social state, the player, and the dialogue engine.
package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jwebster45206/npc-engine/pkg/activity"
	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/jwebster45206/npc-engine/pkg/dialogue"
	"github.com/jwebster45206/npc-engine/pkg/memory"
	"github.com/jwebster45206/npc-engine/pkg/relationship"
	"github.com/jwebster45206/npc-engine/pkg/storage"
	"golang.org/x/sync/errgroup"
)

const DefaultMinutesPerTick = 10

type Config struct {
	Start          clock.Timestamp
	MinutesPerTick int
	EnableChecksum bool
	StrictDialogue bool
}

// World is constructed once per simulation and handed to everything that
// needs shared state.
type World struct {
	Clock    *clock.Clock
	Registry *actor.Registry
	Player   *actor.Player
	Ledger   *relationship.Ledger
	Memory   *memory.Store
	Flags    *dialogue.FlagStore
	History  *dialogue.HistoryStore
	Library  *dialogue.Library
	Dialogue *dialogue.Engine

	cfg   Config
	store storage.Storage
	log   *slog.Logger

	mu         sync.RWMutex
	activities map[int]activity.Activity

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates an empty world. player may be nil until content is loaded.
func New(cfg Config, store storage.Storage, player *actor.Player, logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinutesPerTick <= 0 {
		cfg.MinutesPerTick = DefaultMinutesPerTick
	}
	if cfg.Start == (clock.Timestamp{}) {
		cfg.Start = clock.Timestamp{Day: 1, Hour: 6}
	}

	w := &World{
		Clock:      clock.New(cfg.Start),
		Registry:   actor.NewRegistry(),
		Player:     player,
		Ledger:     relationship.NewLedger(),
		Memory:     memory.NewStore(),
		Flags:      dialogue.NewFlagStore(),
		History:    dialogue.NewHistoryStore(),
		Library:    dialogue.NewLibrary(cfg.StrictDialogue),
		cfg:        cfg,
		store:      store,
		log:        logger,
		activities: make(map[int]activity.Activity),
		subs:       make(map[int]chan Event),
	}
	w.wireDialogue()
	w.Clock.OnDayRollover(w.onDayRollover)
	return w
}

func (w *World) wireDialogue() {
	cfg := dialogue.Config{
		Library:  w.Library,
		Registry: w.Registry,
		Ledger:   w.Ledger,
		Memory:   w.Memory,
		Flags:    w.Flags,
		History:  w.History,
		Clock:    w.Clock,
		Logger:   w.log,
	}
	if w.Player != nil {
		cfg.Player = w.Player
	}
	w.Dialogue = dialogue.NewEngine(cfg)
}

// LoadContent reads characters, the player and dialogue trees from storage.
// A missing player file is not an error; predicates on the player then fail.
func (w *World) LoadContent(ctx context.Context) error {
	if w.store == nil {
		return fmt.Errorf("world has no storage")
	}

	specs, err := w.store.ListCharacters(ctx)
	if err != nil {
		return fmt.Errorf("failed to load characters: %w", err)
	}
	for _, spec := range specs {
		if err := w.AddCharacter(spec); err != nil {
			return err
		}
	}

	if w.Player == nil {
		spec, err := w.store.GetPlayerSpec(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			w.log.Warn("No player file found; player predicates will fail")
		case err != nil:
			return fmt.Errorf("failed to load player: %w", err)
		default:
			p, err := actor.NewPlayerFromSpec(spec)
			if err != nil {
				return fmt.Errorf("invalid player: %w", err)
			}
			w.Player = p
			w.wireDialogue()
		}
	}

	trees, err := w.store.ListDialogueTrees(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dialogue: %w", err)
	}
	for _, t := range trees {
		dangling, err := w.Library.Add(t)
		if err != nil {
			return fmt.Errorf("failed to add dialogue tree: %w", err)
		}
		for _, ref := range dangling {
			w.log.Warn("Dialogue tree has a dangling reference", "tree", t.Name, "ref", ref)
		}
	}

	w.log.Info("Content loaded",
		"characters", w.Registry.Len(),
		"trees", w.Library.Len(),
		"player", w.Player != nil)
	return w.RefreshActivities(ctx)
}

// AddCharacter validates and registers a character.
func (w *World) AddCharacter(spec *actor.CharacterSpec) error {
	c, err := actor.NewCharacterFromSpec(spec)
	if err != nil {
		return err
	}
	if err := w.Registry.Register(c); err != nil {
		return err
	}
	w.mu.Lock()
	w.activities[c.ID] = c.CurrentActivity(w.Clock.TimeOfDay())
	w.mu.Unlock()
	return nil
}

// Tick advances the clock by one step and recomputes activities. It returns
// the number of days rolled over.
func (w *World) Tick(ctx context.Context) (int, error) {
	days := w.Clock.Advance(w.cfg.MinutesPerTick)
	return days, w.RefreshActivities(ctx)
}

// RefreshActivities recomputes every character's activity for the current
// time. Characters in conversation are talking to the player at the place
// their schedule would otherwise have them.
func (w *World) RefreshActivities(ctx context.Context) error {
	tod := w.Clock.TimeOfDay()
	chars := w.Registry.List()

	var mu sync.Mutex
	next := make(map[int]activity.Activity, len(chars))

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range chars {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a := c.CurrentActivity(tod)
			if w.Registry.IsConversing(c.ID) {
				a = activity.Talking(a.Location, actor.PlayerID)
			}
			mu.Lock()
			next[c.ID] = a
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to refresh activities: %w", err)
	}

	w.mu.Lock()
	for id, a := range next {
		if prev, ok := w.activities[id]; !ok || !prev.Equal(a) {
			w.log.Debug("Activity changed", "character_id", id, "activity", a.Kind, "location", a.Location)
		}
	}
	w.activities = next
	w.mu.Unlock()
	return nil
}

// Activity returns the last computed activity for a character.
func (w *World) Activity(id int) (activity.Activity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.activities[id]
	return a, ok
}

func (w *World) onDayRollover(day int) {
	w.log.Info("New day", "day", day)
	w.publish(Event{Type: EventDayRollover, Day: day, At: w.Clock.Now()})
}
