package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/dialogue"
	"gopkg.in/yaml.v3"
)

// Content reads authored data from the data directory:
//
//	<dataDir>/characters/*.yaml|*.json
//	<dataDir>/dialogue/**/*.yaml|*.json
//	<dataDir>/player.yaml (or player.json)
type Content struct {
	dataDir string
	strict  bool
	logger  *slog.Logger
}

// NewContent creates a filesystem content reader. With strict set, unknown
// fields in authored files are rejected.
func NewContent(dataDir string, strict bool, logger *slog.Logger) *Content {
	if dataDir == "" {
		dataDir = "./data"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Content{dataDir: dataDir, strict: strict, logger: logger}
}

func isContentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func (c *Content) files(dir string) ([]string, error) {
	root := filepath.Join(c.dataDir, dir)
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isContentFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (c *Content) decode(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(c.strict)
		err = dec.Decode(v)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if c.strict {
			dec.DisallowUnknownFields()
		}
		err = dec.Decode(v)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// ListCharacters loads every character file, sorted by path.
func (c *Content) ListCharacters(ctx context.Context) ([]*actor.CharacterSpec, error) {
	paths, err := c.files("characters")
	if err != nil {
		return nil, err
	}
	specs := make([]*actor.CharacterSpec, 0, len(paths))
	for _, path := range paths {
		var spec actor.CharacterSpec
		if err := c.decode(path, &spec); err != nil {
			return nil, err
		}
		specs = append(specs, &spec)
	}
	c.logger.Debug("Loaded characters", "count", len(specs), "dir", c.dataDir)
	return specs, nil
}

// GetPlayerSpec loads player.yaml, player.yml or player.json.
func (c *Content) GetPlayerSpec(ctx context.Context) (*actor.PlayerSpec, error) {
	for _, name := range []string{"player.yaml", "player.yml", "player.json"} {
		path := filepath.Join(c.dataDir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		var spec actor.PlayerSpec
		if err := c.decode(path, &spec); err != nil {
			return nil, err
		}
		return &spec, nil
	}
	return nil, fmt.Errorf("player file in %s: %w", c.dataDir, fs.ErrNotExist)
}

// ListDialogueTrees loads every tree file in path order, which is also the
// tie-break order for equal priorities.
func (c *Content) ListDialogueTrees(ctx context.Context) ([]*dialogue.Tree, error) {
	paths, err := c.files("dialogue")
	if err != nil {
		return nil, err
	}
	trees := make([]*dialogue.Tree, 0, len(paths))
	for _, path := range paths {
		t, err := dialogue.LoadTreeFile(path, c.strict)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	c.logger.Debug("Loaded dialogue trees", "count", len(trees), "dir", c.dataDir)
	return trees, nil
}
