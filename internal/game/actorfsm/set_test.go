package actorfsm_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/actorfsm"
	"github.com/cory-johannsen/skirmish/internal/game/animation"
	"github.com/cory-johannsen/skirmish/internal/game/loop"
)

func roster(prefix string, faction actor.Faction, n int) []*actor.Actor {
	out := make([]*actor.Actor, n)
	for i := range out {
		out[i] = actor.New(fmt.Sprintf("%s%d", prefix, i), prefix, faction, actor.Stats{MaxHealth: 5}, i)
	}
	return out
}

func TestSet_MachineFor(t *testing.T) {
	friendlies := roster("f", actor.FactionFriendly, 2)
	d := animation.NewDirector(loop.New(), nil, time.Second, zap.NewNop())
	s := actorfsm.NewSet(d, zap.NewNop(), friendlies, []*actor.Actor{nil, friendlies[0]})

	assert.Equal(t, 2, s.Len())
	assert.NotNil(t, s.MachineFor(friendlies[1]))
	assert.Nil(t, s.MachineFor(actor.New("x", "X", actor.FactionHostile, actor.Stats{MaxHealth: 1}, 0)))

	var empty *actorfsm.Set
	assert.Nil(t, empty.MachineFor(friendlies[0]))
	empty.SyncAll()
}

// Property: SyncAll issues death animations in roster order, friendlies first.
func TestPropertySet_SyncAllFollowsRosterOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		friendlies := roster("f", actor.FactionFriendly, rapid.IntRange(0, 5).Draw(t, "friendlies"))
		hostiles := roster("h", actor.FactionHostile, rapid.IntRange(0, 5).Draw(t, "hostiles"))
		svc := animation.NewSimulated(animation.DefaultDurations())
		d := animation.NewDirector(loop.New(), svc, time.Second, zap.NewNop())
		s := actorfsm.NewSet(d, zap.NewNop(), friendlies, hostiles)

		var want []string
		for _, a := range append(append([]*actor.Actor{}, friendlies...), hostiles...) {
			if rapid.Bool().Draw(t, "defeat "+a.ID) {
				a.ApplyDamage(a.MaxHealth())
				want = append(want, a.ID)
			}
		}
		s.SyncAll()

		var got []string
		for _, r := range svc.Plays() {
			if r.Kind == animation.Death {
				got = append(got, r.ActorID)
			}
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("death order %v, want %v", got, want)
		}
	})
}
