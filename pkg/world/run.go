package world

import (
	"context"
	"time"

	"github.com/jwebster45206/npc-engine/pkg/clock"
)

type EventType string

const (
	EventDayRollover EventType = "day.rollover"
	EventSaved       EventType = "snapshot.saved"
	EventLoaded      EventType = "snapshot.loaded"
)

// Event is a world-level notification.
type Event struct {
	Type EventType       `json:"type"`
	Day  int             `json:"day,omitempty"`
	Slot string          `json:"slot,omitempty"`
	At   clock.Timestamp `json:"at"`
}

// Subscribe registers a listener for world events. Slow listeners miss events.
func (w *World) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	w.subMu.Unlock()

	return ch, func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		if c, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(c)
		}
	}
}

func (w *World) publish(ev Event) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// RunOptions control the simulation loop.
type RunOptions struct {
	TickInterval     time.Duration
	AutosaveInterval time.Duration // zero disables autosave
	AutosaveSlot     string
}

// Run ticks the world at a fixed cadence until ctx is cancelled.
func (w *World) Run(ctx context.Context, opts RunOptions) error {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	ticker := time.NewTicker(opts.TickInterval)
	defer ticker.Stop()

	var autosave <-chan time.Time
	if opts.AutosaveInterval > 0 && opts.AutosaveSlot != "" {
		t := time.NewTicker(opts.AutosaveInterval)
		defer t.Stop()
		autosave = t.C
	}

	w.log.Info("Simulation running",
		"tick_interval", opts.TickInterval,
		"minutes_per_tick", w.cfg.MinutesPerTick,
		"autosave_interval", opts.AutosaveInterval)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Simulation stopped", "at", w.Clock.Now().String())
			return nil
		case <-ticker.C:
			if _, err := w.Tick(ctx); err != nil && ctx.Err() == nil {
				w.log.Error("Tick failed", "error", err)
			}
		case <-autosave:
			if err := w.Save(ctx, opts.AutosaveSlot); err != nil {
				w.log.Error("Autosave failed", "slot", opts.AutosaveSlot, "error", err)
			}
		}
	}
}
