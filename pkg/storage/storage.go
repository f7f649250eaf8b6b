package storage

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"

	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/dialogue"
)

// ErrNotFound is wrapped by every backend when a slot or resource is missing.
// It matches fs.ErrNotExist.
var ErrNotFound = fmt.Errorf("not found: %w", fs.ErrNotExist)

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateSlot rejects slot names that are unsafe as file names or keys.
func ValidateSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("invalid save slot %q", slot)
	}
	return nil
}

// Storage defines a unified interface for all storage operations.
// Snapshots go to the configured backend; authored content is read from the
// data directory.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Snapshot operations. Snapshots are opaque encoded bytes.
	SaveSnapshot(ctx context.Context, slot string, data []byte) error
	LoadSnapshot(ctx context.Context, slot string) ([]byte, error)
	DeleteSnapshot(ctx context.Context, slot string) error
	ListSnapshots(ctx context.Context) ([]string, error)

	// Authored content (filesystem-backed)
	ListCharacters(ctx context.Context) ([]*actor.CharacterSpec, error)
	GetPlayerSpec(ctx context.Context) (*actor.PlayerSpec, error)
	ListDialogueTrees(ctx context.Context) ([]*dialogue.Tree, error)
}
