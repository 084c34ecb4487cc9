package animation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skirmish/internal/game/animation"
	"github.com/cory-johannsen/skirmish/internal/game/loop"
)

const frame = 16 * time.Millisecond

// step advances both the service and the loop by dt, the way a battle frame does.
func step(d *animation.Director, l *loop.Loop, dt time.Duration) {
	d.Update(dt)
	l.Step(dt)
}

func TestDirector_SimulatedCompletesAfterDuration(t *testing.T) {
	l := loop.New()
	svc := animation.NewSimulated(map[animation.Kind]time.Duration{animation.Attack: 50 * time.Millisecond})
	d := animation.NewDirector(l, svc, time.Second, zap.NewNop())

	var got []animation.Completion
	tok := d.Play("a", animation.Attack, "b", func(c animation.Completion) { got = append(got, c) })
	for i := 0; i < 3; i++ {
		step(d, l, frame)
	}
	assert.Empty(t, got)
	step(d, l, frame)
	require.Len(t, got, 1)
	assert.Equal(t, tok, got[0].Token)
	assert.Equal(t, animation.Attack, got[0].Kind)
	assert.False(t, got[0].TimedOut)
	assert.Zero(t, d.Pending())
	assert.Equal(t, []animation.Kind{animation.Attack}, svc.PlaysOf("a"))
}

func TestDirector_DuplicateAndUnknownTokensIgnored(t *testing.T) {
	l := loop.New()
	d := animation.NewDirector(l, &animation.Stalled{}, 0, nil)
	calls := 0
	tok := d.Play("a", animation.Cast, "", func(animation.Completion) { calls++ })
	d.Complete(tok)
	d.Complete(tok)
	d.Complete("nope")
	l.Step(0)
	assert.Equal(t, 1, calls)
}

func TestDirector_OneWaiterPerToken(t *testing.T) {
	l := loop.New()
	d := animation.NewDirector(l, &animation.Stalled{}, 0, nil)
	var order []string
	t1 := d.Play("a", animation.Attack, "", func(animation.Completion) { order = append(order, "attack") })
	t2 := d.Play("b", animation.Hit, "", func(animation.Completion) { order = append(order, "hit") })
	assert.NotEqual(t, t1, t2)
	d.Complete(t2)
	l.Step(0)
	assert.Equal(t, []string{"hit"}, order)
	d.Complete(t1)
	l.Step(0)
	assert.Equal(t, []string{"hit", "attack"}, order)
}

func TestDirector_TimeoutAssumesComplete(t *testing.T) {
	l := loop.New()
	core, logs := observer.New(zapcore.WarnLevel)
	stalled := &animation.Stalled{}
	d := animation.NewDirector(l, stalled, 100*time.Millisecond, zap.New(core))

	var got *animation.Completion
	tok := d.Play("a", animation.Cast, "", func(c animation.Completion) { got = &c })
	l.Step(99 * time.Millisecond)
	assert.Nil(t, got)
	l.Step(time.Millisecond)
	require.NotNil(t, got)
	assert.True(t, got.TimedOut)
	assert.Equal(t, 1, logs.FilterMessageSnippet("timed out").Len())

	// A late completion after the timeout is ignored.
	d.Complete(tok)
	l.Step(0)
	assert.Len(t, stalled.Plays(), 1)
}

func TestDirector_CompletionCancelsTimeout(t *testing.T) {
	l := loop.New()
	d := animation.NewDirector(l, &animation.Stalled{}, 100*time.Millisecond, nil)
	calls := 0
	tok := d.Play("a", animation.Hit, "", func(c animation.Completion) {
		calls++
		assert.False(t, c.TimedOut)
	})
	d.Complete(tok)
	l.Step(0)
	l.Step(time.Second)
	assert.Equal(t, 1, calls)
	assert.True(t, l.Idle())
}

func TestDirector_NilServiceCompletesImmediately(t *testing.T) {
	l := loop.New()
	d := animation.NewDirector(l, nil, time.Second, nil)
	done := false
	d.Play("a", animation.Defend, "", func(animation.Completion) { done = true })
	d.Fire("a", animation.Idle, "")
	l.Step(0)
	assert.True(t, done)
}

func TestDirector_FireHasNoWaiter(t *testing.T) {
	l := loop.New()
	svc := animation.NewInstant()
	d := animation.NewDirector(l, svc, time.Second, nil)
	d.Fire("a", animation.Death, "")
	assert.Zero(t, d.Pending())
	step(d, l, frame)
	assert.Equal(t, []animation.Kind{animation.Death}, svc.PlaysOf("a"))
	assert.Empty(t, svc.Plays()[0].Token)
}

func TestDirector_TimedCompletesFromAnotherGoroutine(t *testing.T) {
	l := loop.New()
	svc := animation.NewTimed(map[animation.Kind]time.Duration{animation.Attack: 5 * time.Millisecond})
	defer svc.Stop()
	d := animation.NewDirector(l, svc, 0, nil)
	done := false
	d.Play("a", animation.Attack, "", func(animation.Completion) { done = true })
	require.Eventually(t, func() bool {
		return !l.Idle()
	}, time.Second, time.Millisecond)
	l.Step(0)
	assert.True(t, done)
}
