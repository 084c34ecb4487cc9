// Package formation provides roster templates loaded from YAML and spawns
// fresh actors from them at the start of each battle.
package formation

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// Member is one actor template within a formation.
type Member struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Rank        int                `yaml:"rank"`
	Stats       actor.Stats        `yaml:"stats"`
	Skills      []actor.KnownSkill `yaml:"skills"`
	Resistances map[string]float64 `yaml:"resistances"`
	AIDomain    string             `yaml:"ai_domain"` // HTN domain ID; empty = basic attack fallback
}

// Validate checks the member invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Rank is within
// [0, actor.MaxRank], and the stat block is valid.
func (m *Member) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("member: id must not be empty")
	}
	if m.Name == "" {
		return fmt.Errorf("member %q: name must not be empty", m.ID)
	}
	if m.Rank < 0 || m.Rank > actor.MaxRank {
		return fmt.Errorf("member %q: rank must be in [0, %d], got %d", m.ID, actor.MaxRank, m.Rank)
	}
	if err := m.Stats.Validate(); err != nil {
		return fmt.Errorf("member %q: %w", m.ID, err)
	}
	for _, ks := range m.Skills {
		if ks.Rank < 1 {
			return fmt.Errorf("member %q: skill %q rank must be >= 1", m.ID, ks.SkillID)
		}
	}
	return nil
}

// Spawn creates a fresh actor from the template.
//
// Postcondition: the returned actor is at full health and mana and shares no
// mutable state with m.
func (m *Member) Spawn(faction actor.Faction) *actor.Actor {
	a := actor.New(m.ID, m.Name, faction, m.Stats, m.Rank)
	a.Skills = append([]actor.KnownSkill(nil), m.Skills...)
	if len(m.Resistances) > 0 {
		a.Resistances = make(map[string]float64, len(m.Resistances))
		for k, v := range m.Resistances {
			a.Resistances[k] = v
		}
	}
	a.AIDomain = m.AIDomain
	return a
}

// Formation is a matched pair of rosters.
type Formation struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Friendlies  []Member `yaml:"friendlies"`
	Hostiles    []Member `yaml:"hostiles"`
}

// Validate checks the formation invariants.
//
// Postcondition: Returns nil iff ID is non-empty, both rosters are non-empty,
// every member is valid, and member IDs are unique across both rosters.
func (f *Formation) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("formation: id must not be empty")
	}
	if len(f.Friendlies) == 0 || len(f.Hostiles) == 0 {
		return fmt.Errorf("formation %q: both rosters must have at least one member", f.ID)
	}
	seen := make(map[string]struct{}, len(f.Friendlies)+len(f.Hostiles))
	for _, group := range [][]Member{f.Friendlies, f.Hostiles} {
		for i := range group {
			m := &group[i]
			if err := m.Validate(); err != nil {
				return fmt.Errorf("formation %q: %w", f.ID, err)
			}
			if _, dup := seen[m.ID]; dup {
				return fmt.Errorf("formation %q: duplicate member ID %q", f.ID, m.ID)
			}
			seen[m.ID] = struct{}{}
		}
	}
	return nil
}

// Spawn creates fresh actors for both rosters.
func (f *Formation) Spawn() (friendlies, hostiles []*actor.Actor) {
	for i := range f.Friendlies {
		friendlies = append(friendlies, f.Friendlies[i].Spawn(actor.FactionFriendly))
	}
	for i := range f.Hostiles {
		hostiles = append(hostiles, f.Hostiles[i].Spawn(actor.FactionHostile))
	}
	return friendlies, hostiles
}

// Library holds formations keyed by ID. It is read-only after loading and
// safe for concurrent use.
type Library struct {
	formations map[string]*Formation
}

// NewLibrary builds a Library from already-validated formations.
//
// Postcondition: returns an error on duplicate formation IDs.
func NewLibrary(formations ...*Formation) (*Library, error) {
	lib := &Library{formations: make(map[string]*Formation, len(formations))}
	for _, f := range formations {
		if _, dup := lib.formations[f.ID]; dup {
			return nil, fmt.Errorf("duplicate formation ID %q", f.ID)
		}
		lib.formations[f.ID] = f
	}
	return lib, nil
}

// Get returns the formation with id.
func (l *Library) Get(id string) (*Formation, bool) {
	f, ok := l.formations[id]
	return f, ok
}

// IDs returns every formation ID in sorted order.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.formations))
	for id := range l.formations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Provider returns a spawn provider for the formation with id.
//
// Postcondition: returns an error if id is unknown.
func (l *Library) Provider(id string) (*Provider, error) {
	f, ok := l.formations[id]
	if !ok {
		return nil, fmt.Errorf("unknown formation %q", id)
	}
	return &Provider{formation: f}, nil
}

// Provider spawns a fresh copy of one formation for every battle.
type Provider struct {
	formation *Formation
}

// Spawn implements battle.FormationProvider.
func (p *Provider) Spawn(ctx context.Context) ([]*actor.Actor, []*actor.Actor, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	friendlies, hostiles := p.formation.Spawn()
	return friendlies, hostiles, nil
}

type formationFile struct {
	Formations []*Formation `yaml:"formations"`
}

// LoadFile reads a YAML file holding a top-level "formations" list. When
// skills is non-nil every member skill must be registered in it.
//
// Precondition: path must be a readable file.
// Postcondition: Returns a populated Library, or an error if the file fails to parse or validate.
func LoadFile(path string, skills *skill.Registry) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading formations %q: %w", path, err)
	}
	var f formationFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	for _, form := range f.Formations {
		if err := form.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if skills != nil {
			if err := checkSkills(form, skills); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return NewLibrary(f.Formations...)
}

func checkSkills(f *Formation, skills *skill.Registry) error {
	for _, group := range [][]Member{f.Friendlies, f.Hostiles} {
		for _, m := range group {
			for _, ks := range m.Skills {
				sk, err := skills.Get(ks.SkillID)
				if err != nil {
					return fmt.Errorf("formation %q member %q: %w", f.ID, m.ID, err)
				}
				if _, err := sk.Rank(ks.Rank); err != nil {
					return fmt.Errorf("formation %q member %q skill %q: %w", f.ID, m.ID, sk.ID, err)
				}
			}
		}
	}
	return nil
}
