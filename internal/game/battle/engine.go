package battle

import (
	"fmt"
	"sort"
	"sync"
)

// Engine tracks every running battle by ID.
// It is safe for concurrent use.
type Engine struct {
	mu      sync.RWMutex
	battles map[string]*Battle
}

// NewEngine creates an empty Engine.
//
// Postcondition: Returns a non-nil Engine ready for use.
func NewEngine() *Engine {
	return &Engine{battles: make(map[string]*Battle)}
}

// Add registers b.
//
// Precondition: b must be non-nil.
// Postcondition: Returns an error if a battle with the same ID is already registered.
func (e *Engine) Add(b *Battle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.battles[b.ID()]; exists {
		return fmt.Errorf("battle %q already registered", b.ID())
	}
	e.battles[b.ID()] = b
	return nil
}

// Get returns the battle with the given ID.
func (e *Engine) Get(id string) (*Battle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.battles[id]
	return b, ok
}

// Remove unregisters the battle with the given ID. Removing an unknown ID is a no-op.
func (e *Engine) Remove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.battles, id)
}

// Len returns the number of registered battles.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.battles)
}

// IDs returns every registered battle ID in sorted order.
func (e *Engine) IDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.battles))
	for id := range e.battles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
