package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	// Authored content and persistence
	DataDir        string `env:"DATA_DIR" envDefault:"./data"`
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"file"`
	RedisURL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./saves/npc.db"`
	SaveDir        string `env:"SAVE_DIR" envDefault:"./saves"`
	SaveSlot       string `env:"SAVE_SLOT" envDefault:"autosave"`
	EnableChecksum bool   `env:"ENABLE_CHECKSUM" envDefault:"true"`
	StrictDialogue bool   `env:"STRICT_DIALOGUE" envDefault:"false"`

	// Simulation loop
	TickInterval     time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	MinutesPerTick   int           `env:"MINUTES_PER_TICK" envDefault:"10"`
	AutosaveInterval time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"0s"`
}

var backends = []string{"memory", "file", "redis", "sqlite"}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	known := false
	for _, b := range backends {
		if c.StorageBackend == b {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("STORAGE_BACKEND must be one of %s, got %q", strings.Join(backends, ", "), c.StorageBackend)
	}
	if c.MinutesPerTick <= 0 {
		return fmt.Errorf("MINUTES_PER_TICK must be positive, got %d", c.MinutesPerTick)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.AutosaveInterval < 0 {
		return fmt.Errorf("AUTOSAVE_INTERVAL cannot be negative, got %s", c.AutosaveInterval)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
