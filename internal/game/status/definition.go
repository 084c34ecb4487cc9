// Package status implements timed status effects: definitions loaded from YAML and
// the per-actor ledger that stacks, refreshes, ticks, and expires them.
package status

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind selects what a status does when its owner's turn starts.
type Kind string

const (
	// KindMarker has no tick effect; it only exists to be queried (e.g. stun).
	KindMarker Kind = "marker"
	// KindDamageOverTime deals potency * stacks damage per tick.
	KindDamageOverTime Kind = "dot"
	// KindHealOverTime heals potency * stacks per tick.
	KindHealOverTime Kind = "hot"
)

// Definition is the static description of a status effect, loaded from YAML.
type Definition struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Kind        Kind   `yaml:"kind"`
	// Stackable statuses gain a stack on re-application; others refresh.
	Stackable bool `yaml:"stackable"`
	MaxStacks int  `yaml:"max_stacks"`
	// Harmful statuses are removed by an unreferenced ClearStatus effect.
	Harmful bool `yaml:"harmful"`
	// SkipTurn statuses cause the owner to lose the turn on which they tick.
	SkipTurn bool `yaml:"skip_turn"`
}

// Validate checks the definition invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Kind is known,
// and stackable definitions have MaxStacks >= 1.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("status: id must not be empty")
	}
	if d.Name == "" {
		return fmt.Errorf("status %q: name must not be empty", d.ID)
	}
	switch d.Kind {
	case KindMarker, KindDamageOverTime, KindHealOverTime:
	default:
		return fmt.Errorf("status %q: kind must be one of [marker, dot, hot], got %q", d.ID, d.Kind)
	}
	if d.Stackable && d.MaxStacks < 1 {
		return fmt.Errorf("status %q: stackable statuses need max_stacks >= 1", d.ID)
	}
	return nil
}

// Registry holds all known Definitions keyed by ID.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *Definition) {
	r.defs[def.ID] = def
}

// Get returns the Definition for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int { return len(r.defs) }

type statusFile struct {
	Statuses []*Definition `yaml:"statuses"`
}

// LoadDirectory reads every *.yaml file in dir. Each file holds a top-level
// "statuses" list.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Registry, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading status dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var f statusFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, def := range f.Statuses {
			if def.Kind == "" {
				def.Kind = KindMarker
			}
			if err := def.Validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			reg.Register(def)
		}
	}
	return reg, nil
}
