package actorfsm

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/animation"
)

// Set indexes one Machine per actor and remembers roster order.
type Set struct {
	order    []*actor.Actor
	machines map[*actor.Actor]*Machine
}

// NewSet creates a Machine for every actor in groups, in the order given.
// An actor listed twice keeps its first machine.
func NewSet(director *animation.Director, logger *zap.Logger, groups ...[]*actor.Actor) *Set {
	s := &Set{machines: make(map[*actor.Actor]*Machine)}
	for _, g := range groups {
		for _, a := range g {
			if a == nil || s.machines[a] != nil {
				continue
			}
			s.order = append(s.order, a)
			s.machines[a] = New(a, director, logger)
		}
	}
	return s
}

// MachineFor returns a's machine, or nil when a has none.
func (s *Set) MachineFor(a *actor.Actor) *Machine {
	if s == nil {
		return nil
	}
	return s.machines[a]
}

// Len returns the number of machines.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// SyncAll reconciles every machine with its actor's health in roster order,
// so the resulting animation requests are issued deterministically.
func (s *Set) SyncAll() {
	if s == nil {
		return
	}
	for _, a := range s.order {
		s.machines[a].Sync()
	}
}
