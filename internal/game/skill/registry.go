package skill

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
)

// Registry holds all known skills keyed by ID.
type Registry struct {
	skills map[string]*Skill
}

// NewRegistry creates a Registry pre-populated with BasicAttack and Defend(defendMultiplier).
func NewRegistry(defendMultiplier float64) *Registry {
	r := &Registry{skills: make(map[string]*Skill)}
	r.Register(BasicAttack())
	r.Register(Defend(defendMultiplier))
	return r
}

// Register adds s, overwriting any existing skill with the same ID.
// Precondition: s must not be nil.
func (r *Registry) Register(s *Skill) {
	r.skills[s.ID] = s
}

// Get returns the skill for id.
//
// Postcondition: Returns an error wrapping ErrUnknownSkill when id is not registered.
func (r *Registry) Get(id string) (*Skill, error) {
	s, ok := r.skills[id]
	if !ok {
		return nil, fmt.Errorf("skill %q: %w", id, ErrUnknownSkill)
	}
	return s, nil
}

// IDs returns all registered skill IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.skills))
	for id := range r.skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered skills.
func (r *Registry) Len() int { return len(r.skills) }

type effectDoc struct {
	Kind        string   `yaml:"kind"`
	Base        float64  `yaml:"base"`
	ScalingStat string   `yaml:"scaling_stat"`
	Multiplier  float64  `yaml:"multiplier"`
	Element     string   `yaml:"element"`
	Chance      *float64 `yaml:"chance"`
	Duration    int      `yaml:"duration"`
	Stat        string   `yaml:"stat"`
	Status      string   `yaml:"status"`
}

type rankDoc struct {
	ManaCost     int         `yaml:"mana_cost"`
	CritModifier float64     `yaml:"crit_modifier"`
	Effects      []effectDoc `yaml:"effects"`
}

type skillDoc struct {
	ID      string    `yaml:"id"`
	Name    string    `yaml:"name"`
	Target  string    `yaml:"target"`
	Channel string    `yaml:"channel"`
	Motion  string    `yaml:"motion"`
	Ranks   []rankDoc `yaml:"ranks"`
}

type skillFile struct {
	Skills []skillDoc `yaml:"skills"`
}

func (d effectDoc) toDefinition() (EffectDefinition, error) {
	kind, err := ParseEffectKind(d.Kind)
	if err != nil {
		return EffectDefinition{}, err
	}
	scaling, err := actor.ParseStatType(d.ScalingStat)
	if err != nil {
		return EffectDefinition{}, fmt.Errorf("scaling_stat: %w", err)
	}
	stat, err := actor.ParseStatType(d.Stat)
	if err != nil {
		return EffectDefinition{}, fmt.Errorf("stat: %w", err)
	}
	chance := 1.0
	if d.Chance != nil {
		chance = *d.Chance
	}
	return EffectDefinition{
		Kind:        kind,
		Base:        d.Base,
		ScalingStat: scaling,
		Multiplier:  d.Multiplier,
		Element:     strings.ToLower(d.Element),
		Chance:      chance,
		Duration:    d.Duration,
		Stat:        stat,
		StatusID:    d.Status,
	}, nil
}

func (d skillDoc) toSkill() (*Skill, error) {
	target, err := ParseTargetType(d.Target)
	if err != nil {
		return nil, err
	}
	channel, err := ParseDamageChannel(d.Channel)
	if err != nil {
		return nil, err
	}
	motion, err := ParseMotion(d.Motion, MotionCast)
	if err != nil {
		return nil, err
	}
	s := &Skill{ID: d.ID, Name: d.Name, Target: target, Channel: channel, Motion: motion}
	for i, rd := range d.Ranks {
		r := Rank{ManaCost: rd.ManaCost, CritModifier: rd.CritModifier}
		for j, ed := range rd.Effects {
			def, err := ed.toDefinition()
			if err != nil {
				return nil, fmt.Errorf("skill %q rank %d effect %d: %w", d.ID, i+1, j, err)
			}
			r.Effects = append(r.Effects, def)
		}
		s.Ranks = append(s.Ranks, r)
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	return s, s.Validate()
}

// LoadDirectory reads every *.yaml file in dir into reg. Each file holds a
// top-level "skills" list. An effect without a chance always applies.
//
// Precondition: dir must be a readable directory; reg must not be nil.
// Postcondition: Returns an error if any file fails to parse or any skill fails validation.
func LoadDirectory(dir string, reg *Registry) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading skill dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		var f skillFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, doc := range f.Skills {
			s, err := doc.toSkill()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reg.Register(s)
		}
	}
	return nil
}
