package dialogue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jwebster45206/npc-engine/pkg/conditionals"
	"gopkg.in/yaml.v3"
)

// ErrDanglingReference is returned by a strict Library for options that point
// at nodes the tree does not contain.
var ErrDanglingReference = errors.New("dangling node reference")

// Validate checks a tree's structure: a name, at least one node, unique
// non-empty node ids, and well-formed conditions. Dangling option targets are
// not structural errors; see DanglingReferences.
func (t *Tree) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tree name is required")
	}
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree %q has no nodes", t.Name)
	}
	if err := conditionals.ValidateAll(t.Conditions); err != nil {
		return fmt.Errorf("tree %q: %w", t.Name, err)
	}

	seen := make(map[string]bool, len(t.Nodes))
	for i, n := range t.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("tree %q: node %d has no id", t.Name, i)
		}
		if n.ID == ExitTarget {
			return fmt.Errorf("tree %q: node id %q is reserved", t.Name, ExitTarget)
		}
		if seen[n.ID] {
			return fmt.Errorf("tree %q: duplicate node id %q", t.Name, n.ID)
		}
		seen[n.ID] = true

		if err := conditionals.ValidateAll(n.Conditions); err != nil {
			return fmt.Errorf("tree %q node %q: %w", t.Name, n.ID, err)
		}
		for j, o := range n.Options {
			if err := conditionals.ValidateAll(o.Conditions); err != nil {
				return fmt.Errorf("tree %q node %q option %d: %w", t.Name, n.ID, j, err)
			}
		}
	}
	return nil
}

// DanglingReferences lists option targets that name no node in the tree.
func (t *Tree) DanglingReferences() []string {
	var out []string
	for _, n := range t.Nodes {
		for j, o := range n.Options {
			if o.IsExit() {
				continue
			}
			if _, ok := t.Node(o.Next); !ok {
				out = append(out, fmt.Sprintf("node %q option %d -> %q", n.ID, j, o.Next))
			}
		}
	}
	return out
}

// Library holds loaded trees in load order. Load order breaks priority ties.
type Library struct {
	// Strict rejects trees with dangling option targets. When false such
	// trees load, and choosing a dangling option ends the conversation.
	Strict bool

	mu     sync.RWMutex
	trees  []*Tree
	byName map[string]*Tree
}

func NewLibrary(strict bool) *Library {
	return &Library{Strict: strict, byName: make(map[string]*Tree)}
}

// Add validates and registers a tree. It returns the tree's dangling
// references so lenient callers can log them.
func (l *Library) Add(t *Tree) ([]string, error) {
	if t == nil {
		return nil, fmt.Errorf("tree cannot be nil")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	dangling := t.DanglingReferences()
	if l.Strict && len(dangling) > 0 {
		return dangling, fmt.Errorf("tree %q: %w: %s", t.Name, ErrDanglingReference, strings.Join(dangling, "; "))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byName[t.Name]; exists {
		return nil, fmt.Errorf("tree %q already loaded", t.Name)
	}
	l.trees = append(l.trees, t)
	l.byName[t.Name] = t
	return dangling, nil
}

// Get returns the tree called name.
func (l *Library) Get(name string) (*Tree, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.byName[name]
	return t, ok
}

// Trees returns every tree in load order.
func (l *Library) Trees() []*Tree {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Tree(nil), l.trees...)
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trees)
}

// DecodeTree parses a tree from YAML (".yaml", ".yml") or JSON.
// With strict set, unknown fields are rejected.
func DecodeTree(data []byte, ext string, strict bool) (*Tree, error) {
	var t Tree
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("failed to parse dialogue YAML: %w", err)
		}
	case ".json", "":
		dec := json.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("failed to parse dialogue JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dialogue file extension %q", ext)
	}
	return &t, nil
}

// LoadTreeFile reads and decodes a single tree file.
func LoadTreeFile(path string, strict bool) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dialogue file %s: %w", path, err)
	}
	t, err := DecodeTree(data, filepath.Ext(path), strict)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
