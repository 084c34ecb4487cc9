// Package loop implements the single-threaded cooperative frame loop a battle
// runs on. Work enters the loop as deferred continuations, frame-clock timers,
// or functions posted from other goroutines; all of it executes inside Step.
package loop

import (
	"container/heap"
	"sync"
	"time"
)

// DefaultMaxRunsPerStep bounds how many functions one Step executes so a
// continuation that keeps re-deferring itself cannot wedge a frame.
const DefaultMaxRunsPerStep = 10_000

// Loop is a cooperative scheduler driven by explicit Step calls.
// Only Post is safe for concurrent use; everything else belongs to the goroutine calling Step.
type Loop struct {
	mu    sync.Mutex
	inbox []func()

	deferred []func()
	timers   timerHeap
	now      time.Duration
	seq      uint64
	maxRuns  int
}

// New creates an empty Loop at time zero.
func New() *Loop {
	return &Loop{maxRuns: DefaultMaxRunsPerStep}
}

// Post schedules fn to run on the loop during the next Step. Safe for concurrent use.
//
// Precondition: fn must not be nil.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.inbox = append(l.inbox, fn)
	l.mu.Unlock()
}

// Defer schedules fn to run on the loop after the current function returns,
// within the same Step when called from loop code.
//
// Precondition: called from the loop goroutine; fn must not be nil.
func (l *Loop) Defer(fn func()) {
	l.deferred = append(l.deferred, fn)
}

// After schedules fn once the loop clock has advanced by d.
// d <= 0 behaves like Defer but orders after already-due timers.
//
// Postcondition: Returns a Timer whose Stop cancels fn if it has not run.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	l.seq++
	t := &Timer{deadline: l.now + max(0, d), seq: l.seq, fn: fn, index: -1}
	heap.Push(&l.timers, t)
	return t
}

// Now returns the loop clock: the sum of every dt passed to Step.
func (l *Loop) Now() time.Duration { return l.now }

// Idle reports whether no work is queued or scheduled.
func (l *Loop) Idle() bool {
	l.mu.Lock()
	inbox := len(l.inbox)
	l.mu.Unlock()
	return inbox == 0 && len(l.deferred) == 0 && len(l.timers) == 0
}

// Step advances the clock by dt and runs posted functions, deferred
// continuations, and due timers until none remain or the per-step run bound is hit.
//
// Postcondition: Returns the number of functions executed.
func (l *Loop) Step(dt time.Duration) int {
	if dt > 0 {
		l.now += dt
	}
	runs := 0
	for runs < l.maxRuns {
		l.drainInbox()
		if len(l.deferred) > 0 {
			fn := l.deferred[0]
			l.deferred[0] = nil
			l.deferred = l.deferred[1:]
			fn()
			runs++
			continue
		}
		if len(l.timers) > 0 && l.timers[0].deadline <= l.now {
			t := heap.Pop(&l.timers).(*Timer)
			t.fired = true
			t.fn()
			runs++
			continue
		}
		break
	}
	return runs
}

func (l *Loop) drainInbox() {
	l.mu.Lock()
	if len(l.inbox) == 0 {
		l.mu.Unlock()
		return
	}
	posted := l.inbox
	l.inbox = nil
	l.mu.Unlock()
	l.deferred = append(l.deferred, posted...)
}

// Timer is a pending After callback.
type Timer struct {
	deadline time.Duration
	seq      uint64
	fn       func()
	index    int
	fired    bool
	loop     *timerHeap
}

// Stop cancels the timer.
//
// Postcondition: Returns true iff the callback had not yet run and never will.
func (t *Timer) Stop() bool {
	if t == nil || t.fired || t.index < 0 || t.loop == nil {
		return false
	}
	heap.Remove(t.loop, t.index)
	return true
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	t.loop = h
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
