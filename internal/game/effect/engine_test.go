package effect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/game/status"
)

// fixedSrc always returns val mod n.
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int { return f.val % n }

func newEngine(src dice.Source, statuses *status.Registry) *effect.Engine {
	return effect.NewEngine(effect.DefaultSettings(), dice.NewLoggedRoller(src, zap.NewNop()), statuses, zap.NewNop())
}

func fighter(id string, st actor.Stats) *actor.Actor {
	if st.MaxHealth == 0 {
		st.MaxHealth = 30
	}
	return actor.New(id, id, actor.FactionFriendly, st, 0)
}

func attackInput(caster, target *actor.Actor) effect.Input {
	s := skill.BasicAttack()
	return effect.Input{Caster: caster, Target: target, Skill: s, Rank: &s.Ranks[0], Def: s.Ranks[0].Effects[0], Channel: s.Channel}
}

func TestDamage_BasicAttackMinusDefense(t *testing.T) {
	a := fighter("a", actor.Stats{Attack: 20, Speed: 10})
	b := fighter("b", actor.Stats{Defense: 5, Speed: 5})
	res := newEngine(fixedSrc{}, nil).Resolve(attackInput(a, b))
	require.True(t, res.Success)
	assert.Equal(t, 15, res.Amount)
	assert.False(t, res.Critical)
}

func TestDamage_ClampedToMinimum(t *testing.T) {
	a := fighter("a", actor.Stats{Attack: 2})
	b := fighter("b", actor.Stats{Defense: 50})
	res := newEngine(fixedSrc{}, nil).Resolve(attackInput(a, b))
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Amount)
}

func TestDamage_CritMultipliesBeforeDefense(t *testing.T) {
	a := fighter("a", actor.Stats{Attack: 20, CritChance: 100})
	b := fighter("b", actor.Stats{Defense: 5})
	res := newEngine(fixedSrc{}, nil).Resolve(attackInput(a, b))
	assert.True(t, res.Critical)
	assert.Equal(t, 25, res.Amount)
}

func TestDamage_RankCritModifierAdds(t *testing.T) {
	a := fighter("a", actor.Stats{Attack: 10})
	b := fighter("b", actor.Stats{})
	in := attackInput(a, b)
	in.Rank = &skill.Rank{CritModifier: 100}
	res := newEngine(fixedSrc{val: 999_999}, nil).Resolve(in)
	assert.True(t, res.Critical)
	assert.Equal(t, 15, res.Amount)
}

func TestDamage_MagicalUsesMagicResist(t *testing.T) {
	a := fighter("a", actor.Stats{Magic: 30})
	b := fighter("b", actor.Stats{Defense: 100, MagicResist: 10})
	def := skill.EffectDefinition{Kind: skill.EffectDamage, ScalingStat: actor.StatMagic, Multiplier: 1, Chance: 1}
	res := newEngine(fixedSrc{}, nil).Resolve(effect.Input{Caster: a, Target: b, Def: def, Channel: skill.ChannelMagical})
	assert.Equal(t, 20, res.Amount)
}

func TestDamage_TrueIgnoresDefenseElementScales(t *testing.T) {
	a := fighter("a", actor.Stats{})
	b := fighter("b", actor.Stats{Defense: 100})
	b.Resistances = map[string]float64{"fire": 50}
	def := skill.EffectDefinition{Kind: skill.EffectDamage, Base: 40, Element: "fire", Chance: 1}
	res := newEngine(fixedSrc{}, nil).Resolve(effect.Input{Caster: a, Target: b, Def: def, Channel: skill.ChannelTrue})
	assert.Equal(t, 20, res.Amount)
}

func TestDamage_NilActorFails(t *testing.T) {
	a := fighter("a", actor.Stats{Attack: 5})
	in := attackInput(a, nil)
	res := newEngine(fixedSrc{}, nil).Resolve(in)
	assert.False(t, res.Success)
}

func TestDamage_Property_AtLeastMinimum(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		minDamage := rapid.IntRange(0, 10).Draw(rt, "min")
		e := effect.NewEngine(effect.Settings{CritMultiplier: 1.5, MinDamage: minDamage},
			dice.NewLoggedRoller(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), nil), nil, nil)
		a := fighter("a", actor.Stats{Attack: rapid.IntRange(0, 200).Draw(rt, "atk"), CritChance: rapid.Float64Range(0, 100).Draw(rt, "crit")})
		b := fighter("b", actor.Stats{Defense: rapid.IntRange(0, 200).Draw(rt, "def"), MagicResist: rapid.IntRange(0, 200).Draw(rt, "mr")})
		b.Resistances = map[string]float64{"ice": rapid.Float64Range(-100, 100).Draw(rt, "resist")}
		def := skill.EffectDefinition{
			Kind:        skill.EffectDamage,
			Base:        rapid.Float64Range(-50, 50).Draw(rt, "base"),
			ScalingStat: actor.StatAttack,
			Multiplier:  rapid.Float64Range(0, 3).Draw(rt, "mult"),
			Element:     "ice",
			Chance:      1,
		}
		channel := rapid.SampledFrom([]skill.DamageChannel{skill.ChannelPhysical, skill.ChannelMagical, skill.ChannelTrue}).Draw(rt, "channel")
		res := e.Resolve(effect.Input{Caster: a, Target: b, Def: def, Channel: channel, Rank: &skill.Rank{}})
		if res.Success {
			assert.GreaterOrEqual(rt, res.Amount, minDamage)
		}
	})
}

func TestHeal_NoDefenseNoNegative(t *testing.T) {
	a := fighter("a", actor.Stats{})
	b := fighter("b", actor.Stats{Defense: 50})
	e := newEngine(fixedSrc{}, nil)
	res := e.Resolve(effect.Input{Caster: a, Target: b, Def: skill.EffectDefinition{Kind: skill.EffectHeal, Base: 10, Chance: 1}})
	assert.True(t, res.Success)
	assert.Equal(t, 10, res.Amount)

	res = e.Resolve(effect.Input{Caster: a, Target: b, Def: skill.EffectDefinition{Kind: skill.EffectHeal, Base: -10, Chance: 1}})
	assert.Equal(t, 0, res.Amount)
}

func TestStatModifier_BuffAndDebuff(t *testing.T) {
	a := fighter("a", actor.Stats{Magic: 10})
	b := fighter("b", actor.Stats{})
	e := newEngine(fixedSrc{}, nil)

	buff := skill.EffectDefinition{Kind: skill.EffectBuffStat, Base: 2, ScalingStat: actor.StatMagic, Multiplier: 0.5, Stat: actor.StatAttack, Duration: 3}
	res := e.Resolve(effect.Input{Caster: a, Target: b, Def: buff})
	require.True(t, res.Success)
	require.NotNil(t, res.Modifier)
	assert.Equal(t, 7.0, res.Modifier.Delta)
	assert.True(t, res.Modifier.Buff)
	assert.Equal(t, 3, res.Modifier.Remaining)

	debuff := buff
	debuff.Kind = skill.EffectDebuffStat
	res = e.Resolve(effect.Input{Caster: a, Target: b, Def: debuff})
	require.NotNil(t, res.Modifier)
	assert.Equal(t, -7.0, res.Modifier.Delta)
	assert.False(t, res.Modifier.Buff)
}

func TestStatModifier_DefeatedTarget(t *testing.T) {
	a := fighter("a", actor.Stats{})
	b := fighter("b", actor.Stats{})
	b.ApplyDamage(100)
	e := newEngine(fixedSrc{}, nil)
	res := e.Resolve(effect.Input{Caster: a, Target: b, Def: skill.EffectDefinition{Kind: skill.EffectBuffStat, Base: 5, Stat: actor.StatAttack, Duration: 1}})
	assert.False(t, res.Success)
	res = e.Resolve(effect.Input{Caster: a, Target: b, Def: skill.EffectDefinition{Kind: skill.EffectBuffStat, Base: 5, Stat: actor.StatMaxHealth, Duration: 1}})
	assert.True(t, res.Success)
}

func TestApplyStatus_PotencyFromScaling(t *testing.T) {
	reg := status.NewRegistry()
	reg.Register(&status.Definition{ID: "burn", Name: "Burn", Kind: status.KindDamageOverTime, Harmful: true})
	a := fighter("a", actor.Stats{Magic: 8})
	b := fighter("b", actor.Stats{})
	e := newEngine(fixedSrc{}, reg)
	def := skill.EffectDefinition{Kind: skill.EffectApplyStatus, Base: 2, ScalingStat: actor.StatMagic, Multiplier: 0.5, StatusID: "burn", Duration: 3, Element: "fire"}
	res := e.Resolve(effect.Input{Caster: a, Target: b, Def: def})
	require.True(t, res.Success)
	require.NotNil(t, res.Status)
	assert.Equal(t, 6, res.Status.Potency)
	assert.Equal(t, 3, res.Status.Duration)
	assert.Equal(t, "a", res.Status.CasterID)
	assert.Equal(t, "fire", res.Status.Element)
	assert.Zero(t, b.Statuses.Len(), "calculators never mutate the target")

	def.StatusID = "missing"
	res = e.Resolve(effect.Input{Caster: a, Target: b, Def: def})
	assert.False(t, res.Success)
}

func TestClearStatus(t *testing.T) {
	reg := status.NewRegistry()
	poison := &status.Definition{ID: "poison", Name: "Poison", Kind: status.KindDamageOverTime, Harmful: true}
	reg.Register(poison)
	a := fighter("a", actor.Stats{})
	b := fighter("b", actor.Stats{})
	e := newEngine(fixedSrc{}, reg)

	res := e.Resolve(effect.Input{Caster: a, Target: b, Def: skill.EffectDefinition{Kind: skill.EffectClearStatus, StatusID: "poison"}})
	assert.False(t, res.Success)

	_, err := b.Statuses.Apply(status.Application{Def: poison, Potency: 1, Duration: 2})
	require.NoError(t, err)
	res = e.Resolve(effect.Input{Caster: a, Target: b, Def: skill.EffectDefinition{Kind: skill.EffectClearStatus, StatusID: "poison"}})
	assert.True(t, res.Success)
	assert.Equal(t, "poison", res.ClearStatusID)

	res = e.Resolve(effect.Input{Caster: a, Target: b, Def: skill.EffectDefinition{Kind: skill.EffectClearStatus}})
	assert.True(t, res.Success)
	assert.Empty(t, res.ClearStatusID)
}

func TestMoveTarget(t *testing.T) {
	a := fighter("a", actor.Stats{})
	b := actor.New("b", "b", actor.FactionHostile, actor.Stats{MaxHealth: 10}, 2)
	e := newEngine(fixedSrc{}, nil)
	res := e.Resolve(effect.Input{Caster: a, Target: b, Def: skill.EffectDefinition{Kind: skill.EffectMoveTarget, Base: 5}})
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.FromRank)
	assert.Equal(t, actor.MaxRank, res.ToRank)
	assert.Equal(t, 2, b.Rank, "calculators never mutate the target")

	b.Rank = actor.MaxRank
	res = e.Resolve(effect.Input{Caster: a, Target: b, Def: skill.EffectDefinition{Kind: skill.EffectMoveTarget, Base: 1}})
	assert.False(t, res.Success)
	assert.Equal(t, "resisted", res.Reason)
}

func TestRevive(t *testing.T) {
	a := fighter("a", actor.Stats{Magic: 10})
	b := fighter("b", actor.Stats{})
	e := newEngine(fixedSrc{}, nil)
	def := skill.EffectDefinition{Kind: skill.EffectRevive, ScalingStat: actor.StatMagic, Multiplier: 1}

	res := e.Resolve(effect.Input{Caster: a, Target: b, Def: def})
	assert.False(t, res.Success)

	b.ApplyDamage(100)
	res = e.Resolve(effect.Input{Caster: a, Target: b, Def: def})
	assert.True(t, res.Success)
	assert.Equal(t, 10, res.Amount)

	res = e.Resolve(effect.Input{Caster: a, Target: b, Def: skill.EffectDefinition{Kind: skill.EffectRevive}})
	assert.Equal(t, 1, res.Amount)
}

func TestRegister_OverridesCalculator(t *testing.T) {
	e := newEngine(fixedSrc{}, nil)
	e.Register(skill.EffectHeal, func(*effect.Engine, effect.Input) effect.Result {
		return effect.Result{Success: true, Amount: 99}
	})
	a := fighter("a", actor.Stats{})
	res := e.Resolve(effect.Input{Caster: a, Target: a, Def: skill.EffectDefinition{Kind: skill.EffectHeal}})
	assert.Equal(t, 99, res.Amount)
	assert.Equal(t, skill.EffectHeal, res.Kind)
}
