package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/pipeline"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// Basic attacks the living enemy with the lowest health percentage.
// It returns nil when no enemy is alive.
type Basic struct{}

// DecideAction implements battle.Strategy.
func (Basic) DecideAction(self *actor.Actor, _, enemies []*actor.Actor) *pipeline.PendingAction {
	target := weakestActor(actor.Living(enemies))
	if target == nil {
		return nil
	}
	return pipeline.NewAction(self, pipeline.ActionAttack, nil, target)
}

// HTNStrategy plans with the HTN domain named by the actor's AIDomain and
// takes the first planned action the actor can perform. Actors without a
// registered domain, and plans with no usable action, fall back to Basic.
type HTNStrategy struct {
	registry *Registry
	skills   *skill.Registry
	fallback Basic
	logger   *zap.Logger
}

// NewHTNStrategy creates an HTNStrategy.
//
// Precondition: registry and skills must be non-nil.
func NewHTNStrategy(registry *Registry, skills *skill.Registry, logger *zap.Logger) *HTNStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTNStrategy{registry: registry, skills: skills, logger: logger}
}

// DecideAction implements battle.Strategy.
func (s *HTNStrategy) DecideAction(self *actor.Actor, allies, enemies []*actor.Actor) *pipeline.PendingAction {
	planner, ok := s.registry.PlannerFor(self.AIDomain)
	if !ok {
		if self.AIDomain != "" {
			s.logger.Warn("unknown AI domain; using basic strategy",
				zap.String("actor", self.ID),
				zap.String("domain", self.AIDomain),
			)
		}
		return s.fallback.DecideAction(self, allies, enemies)
	}

	plan, err := planner.Plan(BuildWorldState(self, allies, enemies))
	if err != nil {
		s.logger.Warn("planning failed; using basic strategy", zap.String("actor", self.ID), zap.Error(err))
		return s.fallback.DecideAction(self, allies, enemies)
	}
	for _, step := range plan {
		if action := s.toAction(self, step, allies, enemies); action != nil {
			s.logger.Debug("planned action",
				zap.String("actor", self.ID),
				zap.String("action", step.Action),
				zap.String("skill", step.Skill),
				zap.String("target", step.Target),
			)
			return action
		}
	}
	s.logger.Debug("plan produced no usable action; using basic strategy",
		zap.String("actor", self.ID),
		zap.Int("steps", len(plan)),
	)
	return s.fallback.DecideAction(self, allies, enemies)
}

// toAction converts one planned step into a PendingAction, or nil when self cannot perform it now.
func (s *HTNStrategy) toAction(self *actor.Actor, step PlannedAction, allies, enemies []*actor.Actor) *pipeline.PendingAction {
	target := findByID(step.Target, allies, enemies)
	switch step.Action {
	case ActionSkip:
		return pipeline.Skip(self)
	case ActionDefend:
		return pipeline.NewAction(self, pipeline.ActionDefend, nil, self)
	case ActionAttack:
		if target == nil || target.IsDefeated() {
			return nil
		}
		return pipeline.NewAction(self, pipeline.ActionAttack, nil, target)
	case ActionSkill:
		sk := usableSkill(s.skills, self, step.Skill)
		if sk == nil {
			return nil
		}
		if sk.Target.NeedsSelection() && target == nil {
			return nil
		}
		return pipeline.NewAction(self, pipeline.ActionSkill, sk, target)
	}
	return nil
}

// AutoPilot drives player-controlled actors when no input is attached.
// It heals the weakest ally when one is below HealThreshold percent health,
// otherwise casts the most expensive affordable damage skill at the weakest
// enemy, otherwise attacks.
type AutoPilot struct {
	skills        *skill.Registry
	HealThreshold float64
}

// NewAutoPilot creates an AutoPilot with a 40% heal threshold.
func NewAutoPilot(skills *skill.Registry) *AutoPilot {
	return &AutoPilot{skills: skills, HealThreshold: 40}
}

// DecideAction implements battle.Strategy.
func (p *AutoPilot) DecideAction(self *actor.Actor, allies, enemies []*actor.Actor) *pipeline.PendingAction {
	living := actor.Living(enemies)
	if len(living) == 0 {
		return nil
	}
	if hurt := weakestActor(actor.Living(allies)); hurt != nil && hurt.HealthPercent() < p.HealThreshold {
		if sk := p.pick(self, skill.EffectHeal, skill.SideAllies); sk != nil {
			return pipeline.NewAction(self, pipeline.ActionSkill, sk, hurt)
		}
	}
	target := weakestActor(living)
	if sk := p.pick(self, skill.EffectDamage, skill.SideEnemies); sk != nil {
		return pipeline.NewAction(self, pipeline.ActionSkill, sk, target)
	}
	return pipeline.NewAction(self, pipeline.ActionAttack, nil, target)
}

// pick returns the known, affordable skill with the highest mana cost whose
// first effect is kind and whose target side is one of sides.
func (p *AutoPilot) pick(self *actor.Actor, kind skill.EffectKind, sides ...skill.Side) *skill.Skill {
	var (
		best     *skill.Skill
		bestCost = -1
	)
	for _, known := range self.Skills {
		sk := usableSkill(p.skills, self, known.SkillID)
		if sk == nil || !sideIn(sk.Target.Side(), sides) {
			continue
		}
		r, _ := sk.Rank(known.Rank)
		if len(r.Effects) == 0 || r.Effects[0].Kind != kind {
			continue
		}
		if r.ManaCost > bestCost {
			best, bestCost = sk, r.ManaCost
		}
	}
	return best
}

// usableSkill returns the skill with id when self knows it and can pay for its known rank.
func usableSkill(skills *skill.Registry, self *actor.Actor, id string) *skill.Skill {
	sk, err := skills.Get(id)
	if err != nil {
		return nil
	}
	rank, known := self.SkillRank(sk.ID)
	if !known {
		return nil
	}
	r, err := sk.Rank(rank)
	if err != nil || self.Mana < r.ManaCost {
		return nil
	}
	return sk
}

func sideIn(side skill.Side, sides []skill.Side) bool {
	for _, s := range sides {
		if s == side {
			return true
		}
	}
	return false
}

func weakestActor(list []*actor.Actor) *actor.Actor {
	var w *actor.Actor
	for _, a := range list {
		if w == nil || a.HealthPercent() < w.HealthPercent() {
			w = a
		}
	}
	return w
}

func findByID(id string, groups ...[]*actor.Actor) *actor.Actor {
	if id == "" {
		return nil
	}
	for _, g := range groups {
		for _, a := range g {
			if a.ID == id {
				return a
			}
		}
	}
	return nil
}
