package loop_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/loop"
)

func TestDefer_RunsInOrderWithinStep(t *testing.T) {
	l := loop.New()
	var got []int
	l.Defer(func() {
		got = append(got, 1)
		l.Defer(func() { got = append(got, 3) })
	})
	l.Defer(func() { got = append(got, 2) })
	n := l.Step(0)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.True(t, l.Idle())
}

func TestAfter_FiresOnceClockPassesDeadline(t *testing.T) {
	l := loop.New()
	fired := 0
	l.After(50*time.Millisecond, func() { fired++ })
	l.Step(20 * time.Millisecond)
	assert.Zero(t, fired)
	l.Step(20 * time.Millisecond)
	assert.Zero(t, fired)
	l.Step(10 * time.Millisecond)
	assert.Equal(t, 1, fired)
	l.Step(100 * time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 150*time.Millisecond, l.Now())
}

func TestAfter_OrderedByDeadlineThenSchedule(t *testing.T) {
	l := loop.New()
	var got []string
	l.After(30*time.Millisecond, func() { got = append(got, "c") })
	l.After(10*time.Millisecond, func() { got = append(got, "a") })
	l.After(10*time.Millisecond, func() { got = append(got, "b") })
	l.Step(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestTimer_Stop(t *testing.T) {
	l := loop.New()
	fired := false
	tm := l.After(10*time.Millisecond, func() { fired = true })
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	l.Step(time.Second)
	assert.False(t, fired)
	assert.True(t, l.Idle())
}

func TestTimer_StopAfterFire(t *testing.T) {
	l := loop.New()
	tm := l.After(0, func() {})
	l.Step(0)
	assert.False(t, tm.Stop())
}

func TestPost_FromOtherGoroutines(t *testing.T) {
	l := loop.New()
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() { count++ })
		}()
	}
	wg.Wait()
	assert.False(t, l.Idle())
	l.Step(0)
	assert.Equal(t, 20, count)
}

func TestStep_BoundsSelfRescheduling(t *testing.T) {
	l := loop.New()
	var again func()
	again = func() { l.Defer(again) }
	l.Defer(again)
	n := l.Step(0)
	assert.Equal(t, loop.DefaultMaxRunsPerStep, n)
	assert.False(t, l.Idle())
}

func TestLoop_Property_TimersFireInDeadlineOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := loop.New()
		delays := rapid.SliceOfN(rapid.IntRange(0, 100), 1, 20).Draw(rt, "delays")
		var fired []int
		for _, d := range delays {
			d := d
			l.After(time.Duration(d)*time.Millisecond, func() { fired = append(fired, d) })
		}
		for i := 0; i < 12; i++ {
			l.Step(10 * time.Millisecond)
		}
		assert.Len(rt, fired, len(delays))
		for i := 1; i < len(fired); i++ {
			assert.LessOrEqual(rt, fired[i-1], fired[i])
		}
	})
}
