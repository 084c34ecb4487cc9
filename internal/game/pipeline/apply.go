package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// apply commits a successful calculator result to target and returns a log note.
//
// Precondition: res.Success is true.
func (p *Pipeline) apply(target *actor.Actor, res effect.Result) string {
	switch res.Kind {
	case skill.EffectDamage:
		removed := target.ApplyDamage(res.Amount)
		if target.IsDefeated() {
			return fmt.Sprintf("dealt %d, defeated", removed)
		}
		return fmt.Sprintf("dealt %d", removed)
	case skill.EffectHeal:
		return fmt.Sprintf("healed %d", target.Heal(res.Amount))
	case skill.EffectBuffStat, skill.EffectDebuffStat:
		if !target.AddModifier(res.Modifier) {
			return "modifier rejected"
		}
		return fmt.Sprintf("%s %+g for %d turns", res.Modifier.Stat, res.Modifier.Delta, res.Modifier.Remaining)
	case skill.EffectApplyStatus:
		inst, err := target.Statuses.Apply(*res.Status)
		if err != nil {
			p.logger.Warn("status application failed", zap.String("target", target.ID), zap.Error(err))
			return err.Error()
		}
		return fmt.Sprintf("%s x%d for %d turns", inst.Def.ID, inst.Stacks, inst.Remaining)
	case skill.EffectClearStatus:
		if res.ClearStatusID != "" {
			target.Statuses.Remove(res.ClearStatusID)
			return "cleared " + res.ClearStatusID
		}
		return fmt.Sprintf("cleared %v", target.Statuses.RemoveHarmful())
	case skill.EffectMoveTarget:
		from, to, _ := target.MoveRank(res.ToRank - res.FromRank)
		return fmt.Sprintf("moved %d -> %d", from, to)
	case skill.EffectRevive:
		if !target.Revive(res.Amount) {
			return "not defeated"
		}
		return fmt.Sprintf("revived with %d", target.Health)
	default:
		return ""
	}
}
