package ai

import (
	"fmt"
	"sort"
	"sync"
)

// Registry indexes Planners by domain ID. It is safe for concurrent use.
//
// Invariant: each domain ID is registered at most once.
type Registry struct {
	mu       sync.RWMutex
	planners map[string]*Planner
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{planners: make(map[string]*Planner)}
}

// Register creates and stores a Planner for domain whose preconditions run in the VM named vm.
//
// Precondition: domain and caller must not be nil.
// Postcondition: returns error on domain ID collision.
func (r *Registry) Register(domain *Domain, caller ScriptCaller, vm string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.planners[domain.ID]; exists {
		return fmt.Errorf("ai.Registry: domain %q already registered", domain.ID)
	}
	r.planners[domain.ID] = NewPlanner(domain, caller, vm)
	return nil
}

// PlannerFor returns the Planner for domainID, or false if not registered.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.planners[domainID]
	return p, ok
}

// IDs returns the registered domain IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.planners))
	for id := range r.planners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadRegistry loads every domain in dir and registers a Planner for each.
// Each domain's preconditions run in the VM named after the domain ID.
//
// Precondition: caller must not be nil.
func LoadRegistry(dir string, caller ScriptCaller) (*Registry, error) {
	domains, err := LoadDomains(dir)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, d := range domains {
		if err := reg.Register(d, caller, d.ID); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
