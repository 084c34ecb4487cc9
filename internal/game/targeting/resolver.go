// Package targeting enumerates valid targets for a skill and resolves the
// concrete target list an action's effects apply to.
package targeting

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// Roster answers faction-relative membership questions for one battle.
type Roster interface {
	// Allies returns every actor on of's side, including of, living or not.
	Allies(of *actor.Actor) []*actor.Actor
	// Opponents returns every actor on the opposing side, living or not.
	Opponents(of *actor.Actor) []*actor.Actor
}

// Teams is a Roster backed by two fixed faction slices.
type Teams struct {
	Friendlies []*actor.Actor
	Hostiles   []*actor.Actor
}

// Allies implements Roster.
func (t Teams) Allies(of *actor.Actor) []*actor.Actor {
	if of != nil && of.Faction == actor.FactionHostile {
		return t.Hostiles
	}
	return t.Friendlies
}

// Opponents implements Roster.
func (t Teams) Opponents(of *actor.Actor) []*actor.Actor {
	if of != nil && of.Faction == actor.FactionHostile {
		return t.Friendlies
	}
	return t.Hostiles
}

// Resolver computes candidate and final target sets.
type Resolver struct {
	roster Roster
	roller *dice.Roller
	logger *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: roster and roller must be non-nil.
func NewResolver(roster Roster, roller *dice.Roller, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{roster: roster, roller: roller, logger: logger}
}

// Candidates returns the actors a caster may select for tt. Defeated actors
// are included only when includeDefeated is set (Revive-capable skills).
//
// Postcondition: Self yields exactly [caster]; None yields an empty list.
func (r *Resolver) Candidates(tt skill.TargetType, caster *actor.Actor, includeDefeated bool) []*actor.Actor {
	if caster == nil {
		return nil
	}
	var side []*actor.Actor
	switch tt.Side() {
	case skill.SideSelf:
		return []*actor.Actor{caster}
	case skill.SideAllies:
		side = r.roster.Allies(caster)
	case skill.SideEnemies:
		side = r.roster.Opponents(caster)
	default:
		return nil
	}
	out := make([]*actor.Actor, 0, len(side))
	for _, a := range side {
		if a == nil {
			continue
		}
		if a.IsDefeated() && !includeDefeated {
			continue
		}
		out = append(out, a)
	}
	return out
}

// IsValid reports whether target is a selectable candidate for tt.
func (r *Resolver) IsValid(tt skill.TargetType, caster, target *actor.Actor, includeDefeated bool) bool {
	if target == nil {
		return false
	}
	for _, c := range r.Candidates(tt, caster, includeDefeated) {
		if c == target {
			return true
		}
	}
	return false
}

// Resolve returns the concrete list of actors an action's effects apply to.
// Single-target types use hint when valid and otherwise fall back to a random
// candidate. Row types use the hint's row, or the first candidate's row.
//
// Postcondition: Never returns duplicates. Returns a defeated actor only when
// includeDefeated is set. Returns a non-empty list whenever a candidate exists
// and tt is not None.
func (r *Resolver) Resolve(tt skill.TargetType, caster, hint *actor.Actor, includeDefeated bool) []*actor.Actor {
	candidates := r.Candidates(tt, caster, includeDefeated)
	if len(candidates) == 0 {
		return nil
	}
	switch {
	case tt == skill.TargetSelf:
		return []*actor.Actor{caster}
	case tt.IsSingle():
		if contains(candidates, hint) {
			return []*actor.Actor{hint}
		}
		pick := candidates[r.roller.Pick(len(candidates))]
		r.logger.Warn("primary target invalid; falling back to random candidate",
			zap.String("caster", caster.ID),
			zap.String("target_type", tt.String()),
			zap.String("hint", actorID(hint)),
			zap.String("fallback", pick.ID),
		)
		return []*actor.Actor{pick}
	case tt.IsRow():
		anchor := hint
		if !contains(candidates, anchor) {
			anchor = candidates[0]
			if hint != nil {
				r.logger.Warn("row anchor invalid; using first candidate's row",
					zap.String("caster", caster.ID),
					zap.String("hint", hint.ID),
					zap.String("row", anchor.Row().String()),
				)
			}
		}
		row := anchor.Row()
		out := make([]*actor.Actor, 0, len(candidates))
		for _, c := range candidates {
			if c.Row() == row {
				out = append(out, c)
			}
		}
		return dedupe(out)
	default:
		return dedupe(candidates)
	}
}

func contains(list []*actor.Actor, a *actor.Actor) bool {
	if a == nil {
		return false
	}
	for _, c := range list {
		if c == a {
			return true
		}
	}
	return false
}

func dedupe(list []*actor.Actor) []*actor.Actor {
	seen := make(map[*actor.Actor]struct{}, len(list))
	out := list[:0:0]
	for _, a := range list {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func actorID(a *actor.Actor) string {
	if a == nil {
		return ""
	}
	return a.ID
}
