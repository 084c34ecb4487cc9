package actorfsm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/actorfsm"
	"github.com/cory-johannsen/skirmish/internal/game/animation"
	"github.com/cory-johannsen/skirmish/internal/game/loop"
)

type rig struct {
	loop     *loop.Loop
	svc      *animation.Simulated
	director *animation.Director
	actor    *actor.Actor
	machine  *actorfsm.Machine
}

func newRig(t *testing.T) *rig {
	t.Helper()
	l := loop.New()
	svc := animation.NewSimulated(map[animation.Kind]time.Duration{
		animation.Attack: 32 * time.Millisecond,
		animation.Hit:    16 * time.Millisecond,
	})
	d := animation.NewDirector(l, svc, time.Second, zap.NewNop())
	a := actor.New("a", "A", actor.FactionFriendly, actor.Stats{MaxHealth: 10}, 0)
	return &rig{loop: l, svc: svc, director: d, actor: a, machine: actorfsm.New(a, d, zap.NewNop())}
}

func (r *rig) frame() {
	r.director.Update(16 * time.Millisecond)
	r.loop.Step(16 * time.Millisecond)
}

func TestPerform_ReturnsToIdleThenReports(t *testing.T) {
	r := newRig(t)
	var out *actorfsm.Outcome
	ok := r.machine.Perform(animation.Attack, "b", func(o actorfsm.Outcome) {
		out = &o
		assert.True(t, r.machine.IsIdle(), "machine is idle before the waiter runs")
	})
	require.True(t, ok)
	assert.Equal(t, actorfsm.StateAttacking, r.machine.State())

	r.frame()
	assert.Nil(t, out)
	r.frame()
	require.NotNil(t, out)
	assert.True(t, out.Performed)
	assert.False(t, out.Defeated)
	assert.Equal(t, []animation.Kind{animation.Attack, animation.Idle}, r.svc.PlaysOf("a"))
}

func TestPerform_RejectedWhileBusy(t *testing.T) {
	r := newRig(t)
	r.machine.Perform(animation.Attack, "", nil)
	var second *actorfsm.Outcome
	ok := r.machine.Perform(animation.Cast, "", func(o actorfsm.Outcome) { second = &o })
	assert.False(t, ok)
	r.loop.Step(0)
	require.NotNil(t, second)
	assert.False(t, second.Performed)
	assert.Equal(t, actorfsm.StateAttacking, r.machine.State())
}

func TestPerform_DeathDuringReactionForcesDead(t *testing.T) {
	r := newRig(t)
	var out *actorfsm.Outcome
	r.machine.Perform(animation.Hit, "", func(o actorfsm.Outcome) { out = &o })
	r.actor.ApplyDamage(100)
	r.frame()
	require.NotNil(t, out)
	assert.True(t, out.Defeated)
	assert.True(t, r.machine.IsDead())
	assert.Contains(t, r.svc.PlaysOf("a"), animation.Death)
}

func TestPerform_DeadRejectsEverything(t *testing.T) {
	r := newRig(t)
	r.actor.ApplyDamage(100)
	r.machine.Sync()
	require.True(t, r.machine.IsDead())
	for _, k := range []animation.Kind{animation.Attack, animation.Hit, animation.Defend, animation.Cast, animation.UseItem} {
		assert.False(t, r.machine.Perform(k, "", nil))
	}
	assert.True(t, r.machine.IsDead())
}

func TestPerform_IdleAndDeathKindsRejected(t *testing.T) {
	r := newRig(t)
	assert.False(t, r.machine.Perform(animation.Idle, "", nil))
	assert.False(t, r.machine.Perform(animation.Death, "", nil))
	assert.True(t, r.machine.IsIdle())
}

func TestSync_RevivesAfterHealthRestored(t *testing.T) {
	r := newRig(t)
	r.actor.ApplyDamage(100)
	r.machine.Sync()
	require.True(t, r.machine.IsDead())
	r.actor.Revive(5)
	r.machine.Sync()
	assert.True(t, r.machine.IsIdle())
	assert.True(t, r.machine.Perform(animation.Defend, "", nil))
}

func TestNew_DefeatedActorStartsDead(t *testing.T) {
	l := loop.New()
	d := animation.NewDirector(l, nil, 0, nil)
	a := actor.New("x", "X", actor.FactionHostile, actor.Stats{MaxHealth: 5}, 0)
	a.ApplyDamage(5)
	m := actorfsm.New(a, d, nil)
	assert.True(t, m.IsDead())
}

func TestPerform_TimeoutStillReturnsToIdle(t *testing.T) {
	l := loop.New()
	d := animation.NewDirector(l, &animation.Stalled{}, 50*time.Millisecond, nil)
	a := actor.New("a", "A", actor.FactionFriendly, actor.Stats{MaxHealth: 10}, 0)
	m := actorfsm.New(a, d, nil)
	var out *actorfsm.Outcome
	m.Perform(animation.Cast, "", func(o actorfsm.Outcome) { out = &o })
	l.Step(40 * time.Millisecond)
	assert.Nil(t, out)
	l.Step(10 * time.Millisecond)
	require.NotNil(t, out)
	assert.True(t, out.TimedOut)
	assert.True(t, m.IsIdle())
}
