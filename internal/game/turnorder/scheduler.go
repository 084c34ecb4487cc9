// Package turnorder maintains the rotating, speed-ordered queue of living actors.
package turnorder

import (
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
)

// Scheduler yields living actors one at a time in descending speed order,
// rebuilding its queue each time a full cycle has been consumed.
// It is not safe for concurrent use; the battle thread owns it.
type Scheduler struct {
	pool  []*actor.Actor
	queue []*actor.Actor
	cycle int
}

// New creates a Scheduler over friendlies followed by hostiles.
// Pool order is the tie-break for equal speeds.
//
// Postcondition: The first call to Next builds the initial queue.
func New(friendlies, hostiles []*actor.Actor) *Scheduler {
	pool := make([]*actor.Actor, 0, len(friendlies)+len(hostiles))
	pool = append(pool, friendlies...)
	pool = append(pool, hostiles...)
	return &Scheduler{pool: pool}
}

// Reset rebuilds the queue from the currently living pool, sorted by effective
// speed (base plus active modifiers) descending. Speed is sampled once here.
//
// Postcondition: Every living actor appears exactly once in the queue.
func (s *Scheduler) Reset() {
	living := actor.Living(s.pool)
	speeds := make(map[*actor.Actor]float64, len(living))
	for _, a := range living {
		speeds[a] = a.Stat(actor.StatSpeed)
	}
	sort.SliceStable(living, func(i, j int) bool {
		return speeds[living[i]] > speeds[living[j]]
	})
	s.queue = living
	s.cycle++
}

// Next dequeues the next living actor. Actors that died while queued are
// skipped; an empty queue is rebuilt and the call retried.
//
// Postcondition: Returns (nil, false) iff no actor in the pool is alive.
func (s *Scheduler) Next() (*actor.Actor, bool) {
	if !actor.AnyLiving(s.pool) {
		return nil, false
	}
	for {
		if len(s.queue) == 0 {
			s.Reset()
		}
		a := s.queue[0]
		s.queue = s.queue[1:]
		if !a.IsDefeated() {
			return a, true
		}
	}
}

// Upcoming returns the living actors still queued in the current cycle.
func (s *Scheduler) Upcoming() []*actor.Actor {
	return actor.Living(s.queue)
}

// Cycle returns how many times the queue has been built.
func (s *Scheduler) Cycle() int { return s.cycle }

// Pool returns every actor the scheduler was created with, living or not.
func (s *Scheduler) Pool() []*actor.Actor { return s.pool }
