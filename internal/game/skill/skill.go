// Package skill defines immutable skill authoring data: ranks, effect definitions,
// targeting and damage channel, plus a YAML-backed registry.
package skill

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
)

// ErrRankOutOfRange is returned when a proficiency rank has no matching skill rank.
var ErrRankOutOfRange = errors.New("skill rank out of range")

// ErrUnknownSkill is returned when a skill ID is not registered.
var ErrUnknownSkill = errors.New("unknown skill")

// Built-in skill IDs used for the Attack and Defend commands.
const (
	BasicAttackID = "basic_attack"
	DefendID      = "defend"
)

// EffectDefinition is one atomic outcome a skill rank produces.
type EffectDefinition struct {
	Kind EffectKind
	// Base is the flat amount before scaling.
	Base        float64
	ScalingStat actor.StatType
	Multiplier  float64
	Element     string
	// Chance is the application probability in [0, 1].
	Chance float64
	// Duration is in owner turns, used by stat and status effects.
	Duration int
	// Stat is the stat affected by BuffStat/DebuffStat.
	Stat actor.StatType
	// StatusID references a status definition for ApplyStatus/ClearStatus.
	StatusID string
}

// Rank is the cost and effect set for one proficiency level.
type Rank struct {
	ManaCost     int
	CritModifier float64
	Effects      []EffectDefinition
}

// Skill is immutable authoring data for an action.
type Skill struct {
	ID      string
	Name    string
	Target  TargetType
	Channel DamageChannel
	Motion  Motion
	// Ranks is indexed by proficiency rank minus one.
	Ranks []Rank
}

// Rank returns the rank data for a 1-based proficiency rank.
//
// Postcondition: Returns ErrRankOutOfRange when r < 1 or r > len(Ranks).
func (s *Skill) Rank(r int) (*Rank, error) {
	if s == nil {
		return nil, ErrUnknownSkill
	}
	if r < 1 || r > len(s.Ranks) {
		return nil, fmt.Errorf("skill %q rank %d (have %d): %w", s.ID, r, len(s.Ranks), ErrRankOutOfRange)
	}
	return &s.Ranks[r-1], nil
}

// Revives reports whether any rank of s contains a Revive effect.
// Such skills may target defeated allies.
func (s *Skill) Revives() bool {
	if s == nil {
		return false
	}
	for _, r := range s.Ranks {
		for _, e := range r.Effects {
			if e.Kind == EffectRevive {
				return true
			}
		}
	}
	return false
}

// Validate checks structural invariants of s.
//
// Postcondition: Returns nil iff ID is non-empty, there is at least one rank,
// costs are non-negative, and every effect has a chance in [0, 1] and the fields its kind needs.
func (s *Skill) Validate() error {
	if s.ID == "" {
		return errors.New("skill: id must not be empty")
	}
	if len(s.Ranks) == 0 {
		return fmt.Errorf("skill %q: must have at least one rank", s.ID)
	}
	for i, r := range s.Ranks {
		if r.ManaCost < 0 {
			return fmt.Errorf("skill %q rank %d: mana_cost must be >= 0", s.ID, i+1)
		}
		for j, e := range r.Effects {
			if e.Chance < 0 || e.Chance > 1 {
				return fmt.Errorf("skill %q rank %d effect %d: chance must be in [0, 1], got %v", s.ID, i+1, j, e.Chance)
			}
			switch e.Kind {
			case EffectBuffStat, EffectDebuffStat:
				if e.Stat == actor.StatNone {
					return fmt.Errorf("skill %q rank %d effect %d: %s requires a stat", s.ID, i+1, j, e.Kind)
				}
				if e.Duration < 1 {
					return fmt.Errorf("skill %q rank %d effect %d: %s requires duration >= 1", s.ID, i+1, j, e.Kind)
				}
			case EffectApplyStatus:
				if e.StatusID == "" {
					return fmt.Errorf("skill %q rank %d effect %d: apply_status requires a status", s.ID, i+1, j)
				}
				if e.Duration == 0 {
					return fmt.Errorf("skill %q rank %d effect %d: apply_status requires a non-zero duration", s.ID, i+1, j)
				}
			}
		}
	}
	return nil
}

// BasicAttack returns the built-in weapon attack: single enemy, physical,
// damage equal to the caster's attack.
func BasicAttack() *Skill {
	return &Skill{
		ID:      BasicAttackID,
		Name:    "Attack",
		Target:  TargetSingleEnemy,
		Channel: ChannelPhysical,
		Motion:  MotionAttack,
		Ranks: []Rank{{
			Effects: []EffectDefinition{{
				Kind:        EffectDamage,
				ScalingStat: actor.StatAttack,
				Multiplier:  1,
				Chance:      1,
			}},
		}},
	}
}

// Defend returns the built-in guard action: the caster gains
// defense * multiplier Defense until the start of its next turn.
func Defend(multiplier float64) *Skill {
	return &Skill{
		ID:     DefendID,
		Name:   "Defend",
		Target: TargetSelf,
		Motion: MotionDefend,
		Ranks: []Rank{{
			Effects: []EffectDefinition{{
				Kind:        EffectBuffStat,
				ScalingStat: actor.StatDefense,
				Multiplier:  multiplier,
				Chance:      1,
				Duration:    1,
				Stat:        actor.StatDefense,
			}},
		}},
	}
}
