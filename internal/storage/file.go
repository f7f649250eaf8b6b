package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/storage"
)

const snapshotExt = ".sav"

// FileStorage writes each snapshot slot to <saveDir>/<slot>.sav. Writes go to
// a temporary file first so a failed save never replaces a good one.
type FileStorage struct {
	*Content
	saveDir string
	logger  *slog.Logger
}

// Ensure FileStorage implements Storage interface
var _ storage.Storage = (*FileStorage)(nil)

func NewFileStorage(saveDir string, content *Content, logger *slog.Logger) (*FileStorage, error) {
	if saveDir == "" {
		saveDir = "./saves"
	}
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileStorage{Content: content, saveDir: saveDir, logger: logger}, nil
}

func (f *FileStorage) path(slot string) string {
	return filepath.Join(f.saveDir, slot+snapshotExt)
}

func (f *FileStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(f.saveDir)
	if err != nil {
		return fmt.Errorf("save directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("save path %s is not a directory", f.saveDir)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

func (f *FileStorage) SaveSnapshot(ctx context.Context, slot string, data []byte) error {
	if err := storage.ValidateSlot(slot); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.saveDir, slot+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp save: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write save: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close save: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(slot)); err != nil {
		return fmt.Errorf("failed to replace save: %w", err)
	}
	f.logger.Debug("Snapshot written", "slot", slot, "bytes", len(data))
	return nil
}

func (f *FileStorage) LoadSnapshot(ctx context.Context, slot string) ([]byte, error) {
	if err := storage.ValidateSlot(slot); err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", slot, storage.ErrNotFound)
	}
	data, err := os.ReadFile(f.path(slot))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}

func (f *FileStorage) DeleteSnapshot(ctx context.Context, slot string) error {
	if err := storage.ValidateSlot(slot); err != nil {
		return err
	}
	if err := os.Remove(f.path(slot)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (f *FileStorage) ListSnapshots(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.saveDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read save directory: %w", err)
	}
	var slots []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), snapshotExt) {
			slots = append(slots, strings.TrimSuffix(e.Name(), snapshotExt))
		}
	}
	sort.Strings(slots)
	return slots, nil
}
