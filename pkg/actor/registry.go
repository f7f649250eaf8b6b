package actor

import (
	"fmt"
	"sync"
)

// Registry maps character ids to characters and tracks who is in conversation.
type Registry struct {
	mu         sync.RWMutex
	byID       map[int]*Character
	order      []int
	conversing map[int]bool
}

func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[int]*Character),
		conversing: make(map[int]bool),
	}
}

// Register adds a character. Ids must be unique.
func (r *Registry) Register(c *Character) error {
	if c == nil {
		return fmt.Errorf("character cannot be nil")
	}
	if c.ID <= PlayerID {
		return fmt.Errorf("character %q: id must be positive, got %d", c.Name, c.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[c.ID]; exists {
		return fmt.Errorf("character id %d already registered", c.ID)
	}
	r.byID[c.ID] = c
	r.order = append(r.order, c.ID)
	return nil
}

// Get returns the character with id. The returned value must be treated as read-only.
func (r *Registry) Get(id int) (*Character, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

// List returns characters in registration order.
func (r *Registry) List() []*Character {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Character, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// SetConversing marks whether a character is currently held in a dialogue.
func (r *Registry) SetConversing(id int, conversing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conversing {
		r.conversing[id] = true
	} else {
		delete(r.conversing, id)
	}
}

func (r *Registry) IsConversing(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conversing[id]
}
