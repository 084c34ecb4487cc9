// Package effect turns an effect definition plus the caster's and target's
// stats into a concrete outcome. Calculators draw from the RNG but never
// mutate actors; the caller applies the returned Result.
package effect

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/game/status"
)

// Settings holds the global tuning values calculators consult.
type Settings struct {
	// CritMultiplier scales a critical hit's amount. Must be >= 1.
	CritMultiplier float64
	// MinDamage is the floor for successful damage.
	MinDamage int
}

// DefaultSettings returns a 1.5x crit multiplier and a minimum damage of 1.
func DefaultSettings() Settings {
	return Settings{CritMultiplier: 1.5, MinDamage: 1}
}

// Input is everything a calculator may read.
type Input struct {
	Caster  *actor.Actor
	Target  *actor.Actor
	Skill   *skill.Skill
	Rank    *skill.Rank
	Def     skill.EffectDefinition
	Channel skill.DamageChannel
}

// Result is a calculator's outcome. Exactly the fields relevant to Kind are set.
type Result struct {
	Kind    skill.EffectKind
	Success bool
	// Amount is damage dealt, health healed or revived, or the stat delta rounded.
	Amount   int
	Critical bool
	Modifier *actor.Modifier
	Status   *status.Application
	// ClearStatusID names the status to remove; empty with Success means every harmful status.
	ClearStatusID string
	FromRank      int
	ToRank        int
	// Reason explains an unsuccessful result.
	Reason string
}

// Calculator resolves one effect kind.
type Calculator func(e *Engine, in Input) Result

// Engine dispatches effect definitions to the calculator registered for their kind.
type Engine struct {
	settings    Settings
	roller      *dice.Roller
	statuses    *status.Registry
	logger      *zap.Logger
	calculators map[skill.EffectKind]Calculator
}

// NewEngine creates an Engine with a calculator for every built-in effect kind.
//
// Precondition: roller must be non-nil. statuses may be nil when no skill applies a status.
func NewEngine(settings Settings, roller *dice.Roller, statuses *status.Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.CritMultiplier < 1 {
		settings.CritMultiplier = 1
	}
	e := &Engine{
		settings:    settings,
		roller:      roller,
		statuses:    statuses,
		logger:      logger,
		calculators: make(map[skill.EffectKind]Calculator),
	}
	e.Register(skill.EffectDamage, calcDamage)
	e.Register(skill.EffectHeal, calcHeal)
	e.Register(skill.EffectBuffStat, calcStatModifier)
	e.Register(skill.EffectDebuffStat, calcStatModifier)
	e.Register(skill.EffectApplyStatus, calcApplyStatus)
	e.Register(skill.EffectClearStatus, calcClearStatus)
	e.Register(skill.EffectMoveTarget, calcMoveTarget)
	e.Register(skill.EffectRevive, calcRevive)
	return e
}

// Register installs calc for kind, replacing any existing calculator.
func (e *Engine) Register(kind skill.EffectKind, calc Calculator) {
	e.calculators[kind] = calc
}

// Settings returns the engine's tuning values.
func (e *Engine) Settings() Settings { return e.settings }

// Resolve runs the calculator for in.Def.Kind.
//
// Postcondition: Success is false when the caster or target is nil or the kind
// has no calculator; actor state is never modified.
func (e *Engine) Resolve(in Input) Result {
	if in.Caster == nil || in.Target == nil {
		return Result{Kind: in.Def.Kind, Reason: "missing actor"}
	}
	calc, ok := e.calculators[in.Def.Kind]
	if !ok {
		e.logger.Warn("no calculator for effect kind", zap.String("kind", in.Def.Kind.String()))
		return Result{Kind: in.Def.Kind, Reason: fmt.Sprintf("unsupported effect kind %s", in.Def.Kind)}
	}
	res := calc(e, in)
	res.Kind = in.Def.Kind
	return res
}

// Scaled returns base + caster.Stat(scaling) * multiplier.
func Scaled(caster *actor.Actor, def skill.EffectDefinition) float64 {
	return def.Base + caster.Stat(def.ScalingStat)*def.Multiplier
}

// rollCrit reports whether the caster lands a critical effect.
func (e *Engine) rollCrit(in Input) bool {
	critMod := 0.0
	if in.Rank != nil {
		critMod = in.Rank.CritModifier
	}
	p := (in.Caster.Stat(actor.StatCrit) + critMod) / 100
	return e.roller.Chance(p, "crit:"+in.Caster.ID)
}

// scaledWithCrit applies the scaling formula and the crit roll.
func (e *Engine) scaledWithCrit(in Input) (float64, bool) {
	total := Scaled(in.Caster, in.Def)
	crit := e.rollCrit(in)
	if crit {
		total *= e.settings.CritMultiplier
	}
	return total, crit
}

func calcDamage(e *Engine, in Input) Result {
	total, crit := e.scaledWithCrit(in)
	switch in.Channel {
	case skill.ChannelPhysical:
		total -= in.Target.Stat(actor.StatDefense)
	case skill.ChannelMagical:
		total -= in.Target.Stat(actor.StatMagicResist)
	}
	if resist := in.Target.Resistance(in.Def.Element); resist != 0 {
		total *= 1 - resist/100
	}
	amount := max(e.settings.MinDamage, int(math.Round(total)))
	return Result{Success: true, Amount: amount, Critical: crit}
}

func calcHeal(e *Engine, in Input) Result {
	total, crit := e.scaledWithCrit(in)
	return Result{Success: true, Amount: max(0, int(math.Round(total))), Critical: crit}
}

func calcStatModifier(e *Engine, in Input) Result {
	def := in.Def
	if in.Target.IsDefeated() && !def.Stat.IsPoolMax() {
		return Result{Reason: "target defeated"}
	}
	if def.Stat == actor.StatNone || def.Duration < 1 {
		return Result{Reason: "malformed stat effect"}
	}
	delta := Scaled(in.Caster, def)
	buff := def.Kind == skill.EffectBuffStat
	if !buff {
		delta = -math.Abs(delta)
	}
	source := in.Caster.ID
	if in.Skill != nil {
		source = in.Skill.ID
	}
	return Result{
		Success: true,
		Amount:  int(math.Round(delta)),
		Modifier: &actor.Modifier{
			Stat:      def.Stat,
			Delta:     delta,
			Remaining: def.Duration,
			Buff:      buff,
			Source:    source,
		},
	}
}

func calcApplyStatus(e *Engine, in Input) Result {
	if in.Target.IsDefeated() {
		return Result{Reason: "target defeated"}
	}
	if e.statuses == nil {
		return Result{Reason: "no status registry"}
	}
	def, ok := e.statuses.Get(in.Def.StatusID)
	if !ok {
		e.logger.Warn("unknown status referenced by effect", zap.String("status", in.Def.StatusID))
		return Result{Reason: fmt.Sprintf("unknown status %q", in.Def.StatusID)}
	}
	potency := max(0, int(math.Round(Scaled(in.Caster, in.Def))))
	return Result{
		Success: true,
		Amount:  potency,
		Status: &status.Application{
			Def:      def,
			CasterID: in.Caster.ID,
			Element:  in.Def.Element,
			Potency:  potency,
			Duration: in.Def.Duration,
		},
	}
}

func calcClearStatus(e *Engine, in Input) Result {
	if in.Target.IsDefeated() {
		return Result{Reason: "target defeated"}
	}
	if in.Def.StatusID != "" && !in.Target.Statuses.Has(in.Def.StatusID) {
		return Result{Reason: "status not present"}
	}
	return Result{Success: true, ClearStatusID: in.Def.StatusID}
}

func calcMoveTarget(e *Engine, in Input) Result {
	if in.Target.IsDefeated() {
		return Result{Reason: "target defeated"}
	}
	from := in.Target.Rank
	to := min(actor.MaxRank, max(0, from+int(in.Def.Base)))
	if to == from {
		return Result{FromRank: from, ToRank: to, Reason: "resisted"}
	}
	return Result{Success: true, FromRank: from, ToRank: to, Amount: to - from}
}

func calcRevive(e *Engine, in Input) Result {
	if !in.Target.IsDefeated() {
		return Result{Reason: "target not defeated"}
	}
	amount := max(1, int(math.Round(Scaled(in.Caster, in.Def))))
	return Result{Success: true, Amount: amount}
}
