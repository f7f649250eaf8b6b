package storage

import (
	"fmt"
	"log/slog"

	"github.com/jwebster45206/npc-engine/pkg/storage"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Options selects and configures a snapshot backend.
type Options struct {
	Backend       string
	DataDir       string
	StrictContent bool
	RedisURL      string
	SQLitePath    string
	SaveDir       string
}

// Open builds the configured backend. Every backend reads authored content
// from DataDir.
func Open(opts Options, logger *slog.Logger) (storage.Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	content := NewContent(opts.DataDir, opts.StrictContent, logger)

	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStorage(content), nil
	case BackendFile:
		return NewFileStorage(opts.SaveDir, content, logger)
	case BackendRedis:
		return NewRedisStorage(opts.RedisURL, content, logger)
	case BackendSQLite:
		return NewSQLiteStorage(opts.SQLitePath, content, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
