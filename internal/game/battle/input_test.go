package battle_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/pipeline"
)

// fakeListener accepts commands for one actor and every navigation event.
type fakeListener struct {
	mu       sync.Mutex
	actorID  string
	commands []battle.Command
	moves    []int
	confirms int
}

func (f *fakeListener) OnCommand(cmd battle.Command) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cmd.ActorID != f.actorID {
		return false
	}
	f.commands = append(f.commands, cmd)
	return true
}

func (f *fakeListener) OnNavigate(delta int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, delta)
	return true
}

func (f *fakeListener) OnConfirm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms++
	return true
}

func (f *fakeListener) OnCancel() bool { return false }
func (f *fakeListener) OnPickTarget(string) bool { return false }

func TestInputQueue_RetainsUntilSubscribe(t *testing.T) {
	q := battle.NewInputQueue()
	assert.False(t, q.Navigate(1))
	assert.False(t, q.Navigate(-1))
	assert.False(t, q.Confirm())
	assert.Equal(t, 3, q.Pending())

	l := &fakeListener{}
	unsubscribe := q.Subscribe(l)
	assert.Equal(t, []int{1, -1}, l.moves)
	assert.Equal(t, 1, l.confirms)
	assert.Equal(t, 0, q.Pending())

	unsubscribe()
	assert.False(t, q.Navigate(2))
	assert.Equal(t, []int{1, -1}, l.moves)
}

func TestInputQueue_RejectedEventsAreDropped(t *testing.T) {
	q := battle.NewInputQueue()
	first := &fakeListener{actorID: "A"}
	q.Subscribe(first)

	assert.False(t, q.Command(battle.Command{ActorID: "B", Kind: pipeline.ActionAttack}))
	assert.True(t, q.Command(battle.Command{ActorID: "A", Kind: pipeline.ActionDefend}))
	assert.Equal(t, 0, q.Pending())

	second := &fakeListener{actorID: "B"}
	q.Subscribe(second)
	assert.Empty(t, second.commands, "an event rejected by one listener must not reach the next")
}

func TestInputQueue_RetainedEventsRejectedOnSubscribeAreDropped(t *testing.T) {
	q := battle.NewInputQueue()
	assert.False(t, q.Command(battle.Command{ActorID: "C", Kind: pipeline.ActionAttack}))
	assert.False(t, q.Confirm())

	first := &fakeListener{actorID: "A"}
	unsubscribe := q.Subscribe(first)
	assert.Empty(t, first.commands)
	assert.Equal(t, 1, first.confirms)
	assert.Equal(t, 0, q.Pending())
	unsubscribe()

	second := &fakeListener{actorID: "C"}
	q.Subscribe(second)
	assert.Empty(t, second.commands)
}

func TestInputQueue_StaleUnsubscribeKeepsNewerListener(t *testing.T) {
	q := battle.NewInputQueue()
	stale := q.Subscribe(&fakeListener{})
	current := &fakeListener{}
	q.Subscribe(current)
	stale()
	assert.True(t, q.Navigate(1))
	assert.Equal(t, []int{1}, current.moves)
}

func TestInputQueue_PendingIsBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 3*battle.DefaultQueueLimit).Draw(t, "n")
		q := battle.NewInputQueue()
		for i := 0; i < n; i++ {
			q.Navigate(i)
		}
		want := min(n, battle.DefaultQueueLimit)
		if q.Pending() != want {
			t.Fatalf("pending = %d, want %d", q.Pending(), want)
		}
		l := &fakeListener{}
		q.Subscribe(l)
		if len(l.moves) != want {
			t.Fatalf("delivered %d, want %d", len(l.moves), want)
		}
		for i, d := range l.moves {
			if d != n-want+i {
				t.Fatalf("move %d = %d; oldest events must be dropped first", i, d)
			}
		}
	})
}
