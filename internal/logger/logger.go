package logger

import (
	"log/slog"
	"os"

	"github.com/jwebster45206/npc-engine/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	// Configure handler based on environment
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		// JSON format for production
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Text format for development
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", "npc-engine")

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

// WithCharacter scopes a logger to one character.
func WithCharacter(logger *slog.Logger, id int, name string) *slog.Logger {
	return logger.With("character_id", id, "character", name)
}

// WithSlot scopes a logger to a save slot.
func WithSlot(logger *slog.Logger, slot string) *slog.Logger {
	return logger.With("slot", slot)
}
