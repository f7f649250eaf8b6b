// Package snapshot encodes the mutable simulation state into a versioned,
// optionally checksummed envelope.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/jwebster45206/npc-engine/pkg/dialogue"
	"github.com/jwebster45206/npc-engine/pkg/memory"
	"github.com/jwebster45206/npc-engine/pkg/relationship"
)

// CurrentVersion is written to every snapshot. Loads of any other version fail.
const CurrentVersion = "1"

// State is everything that changes during play.
type State struct {
	Clock         clock.Timestamp                 `json:"clock"`
	Relationships map[int]map[int]int             `json:"relationships"`
	Memories      map[int][]memory.Entry          `json:"memories"`
	Flags         map[int][]string                `json:"flags"`
	History       map[int][]dialogue.HistoryEntry `json:"history"`
	Player        *actor.Progress                 `json:"player,omitempty"`
}

// Validate rejects states a running world could not hold.
func (s *State) Validate() error {
	if !s.Clock.Valid() {
		return fmt.Errorf("invalid clock %+v", s.Clock)
	}
	for owner, targets := range s.Relationships {
		for target, v := range targets {
			if v < relationship.MinScore || v > relationship.MaxScore {
				return fmt.Errorf("relationship %d->%d out of range: %d", owner, target, v)
			}
		}
	}
	for owner, entries := range s.Memories {
		if len(entries) > memory.Capacity {
			return fmt.Errorf("character %d has %d memories, limit %d", owner, len(entries), memory.Capacity)
		}
	}
	for owner, entries := range s.History {
		if len(entries) > dialogue.HistoryCapacity {
			return fmt.Errorf("character %d has %d history entries, limit %d", owner, len(entries), dialogue.HistoryCapacity)
		}
	}
	if s.Player != nil {
		if err := s.Player.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot is the stored envelope.
type Snapshot struct {
	ID       uuid.UUID       `json:"id"`
	Version  string          `json:"version"`
	SavedAt  time.Time       `json:"saved_at"`
	Checksum string          `json:"checksum,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

type Options struct {
	EnableChecksum bool
}

// Checksum is the xxhash64 of the compacted payload, as 16 hex digits.
func Checksum(payload []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(buf.Bytes())), nil
}

// Encode serialises state into a snapshot envelope.
func Encode(state State, opts Options) ([]byte, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, newError(KindIO, "failed to marshal state", err)
	}
	env := Snapshot{
		ID:      uuid.New(),
		Version: CurrentVersion,
		SavedAt: time.Now().UTC(),
		Payload: payload,
	}
	if opts.EnableChecksum {
		if env.Checksum, err = Checksum(payload); err != nil {
			return nil, newError(KindIO, "failed to checksum state", err)
		}
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, newError(KindIO, "failed to marshal snapshot", err)
	}
	return data, nil
}

// Decode parses and verifies a snapshot. With checksums enabled the snapshot
// must carry a checksum that matches its payload.
func Decode(data []byte, opts Options) (*State, *Snapshot, error) {
	var env Snapshot
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, newError(KindCorrupted, "unreadable snapshot", err)
	}
	if env.Version != CurrentVersion {
		return nil, nil, newError(KindVersionMismatch,
			fmt.Sprintf("snapshot version %q, expected %q", env.Version, CurrentVersion), nil)
	}
	if len(env.Payload) == 0 {
		return nil, nil, newError(KindCorrupted, "snapshot has no payload", nil)
	}
	if opts.EnableChecksum {
		if env.Checksum == "" {
			return nil, nil, newError(KindChecksumMismatch, "missing checksum", nil)
		}
		sum, err := Checksum(env.Payload)
		if err != nil {
			return nil, nil, newError(KindCorrupted, "unreadable payload", err)
		}
		if sum != env.Checksum {
			return nil, nil, newError(KindChecksumMismatch,
				fmt.Sprintf("stored %s, computed %s", env.Checksum, sum), nil)
		}
	}

	var state State
	if err := json.Unmarshal(env.Payload, &state); err != nil {
		return nil, nil, newError(KindCorrupted, "unreadable payload", err)
	}
	if err := state.Validate(); err != nil {
		return nil, nil, newError(KindCorrupted, "invalid state", err)
	}
	return &state, &env, nil
}
