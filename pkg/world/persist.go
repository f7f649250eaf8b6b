package world

import (
	"context"

	"github.com/jwebster45206/npc-engine/pkg/snapshot"
)

// Capture copies all mutable state. No dialogue transition runs during the copy.
func (w *World) Capture() snapshot.State {
	var s snapshot.State
	w.Dialogue.Freeze(func() {
		s = snapshot.State{
			Clock:         w.Clock.Now(),
			Relationships: w.Ledger.Snapshot(),
			Memories:      w.Memory.Snapshot(),
			Flags:         w.Flags.Snapshot(),
			History:       w.History.Snapshot(),
		}
		if w.Player != nil {
			pr := w.Player.Progress()
			s.Player = &pr
		}
	})
	return s
}

// Restore replaces all mutable state with s. The state is validated first;
// on error nothing changes, including the active conversation. On success
// any active conversation is ended.
func (w *World) Restore(ctx context.Context, s *snapshot.State) error {
	if err := s.Validate(); err != nil {
		return &snapshot.Error{Kind: snapshot.KindCorrupted, Message: "invalid state", Err: err}
	}
	err := w.Dialogue.Reset(func() error {
		if w.Player != nil && s.Player != nil {
			if err := w.Player.SetProgress(*s.Player); err != nil {
				return err
			}
		}
		w.Clock.Set(s.Clock)
		w.Ledger.Restore(s.Relationships)
		w.Memory.Restore(s.Memories)
		w.Flags.Restore(s.Flags)
		w.History.Restore(s.History)
		return nil
	})
	if err != nil {
		return &snapshot.Error{Kind: snapshot.KindCorrupted, Message: "invalid player state", Err: err}
	}
	return w.RefreshActivities(ctx)
}

// Save writes the current state to slot. Failures are *snapshot.Error.
func (w *World) Save(ctx context.Context, slot string) error {
	if w.store == nil {
		return &snapshot.Error{Kind: snapshot.KindIO, Slot: slot, Message: "no storage configured"}
	}
	data, err := snapshot.Encode(w.Capture(), w.options())
	if err != nil {
		return snapshot.Classify(slot, err)
	}
	if err := w.store.SaveSnapshot(ctx, slot, data); err != nil {
		w.log.Error("Failed to save snapshot", "slot", slot, "error", err)
		return snapshot.Classify(slot, err)
	}
	w.log.Info("Game saved", "slot", slot, "bytes", len(data))
	w.publish(Event{Type: EventSaved, Slot: slot, At: w.Clock.Now()})
	return nil
}

// Load replaces the current state with the snapshot in slot. On failure the
// current state is untouched and the error is a *snapshot.Error.
func (w *World) Load(ctx context.Context, slot string) error {
	if w.store == nil {
		return &snapshot.Error{Kind: snapshot.KindIO, Slot: slot, Message: "no storage configured"}
	}
	data, err := w.store.LoadSnapshot(ctx, slot)
	if err != nil {
		return snapshot.Classify(slot, err)
	}
	state, env, err := snapshot.Decode(data, w.options())
	if err != nil {
		w.log.Warn("Rejected snapshot", "slot", slot, "error", err)
		return snapshot.Classify(slot, err)
	}
	if err := w.Restore(ctx, state); err != nil {
		return snapshot.Classify(slot, err)
	}
	w.log.Info("Game loaded", "slot", slot, "snapshot_id", env.ID, "saved_at", env.SavedAt)
	w.publish(Event{Type: EventLoaded, Slot: slot, At: w.Clock.Now()})
	return nil
}

func (w *World) options() snapshot.Options {
	return snapshot.Options{EnableChecksum: w.cfg.EnableChecksum}
}
