package animation

import (
	"sync"
	"time"
)

// DefaultDurations returns representative play lengths for each animation kind.
func DefaultDurations() map[Kind]time.Duration {
	return map[Kind]time.Duration{
		Idle:    0,
		Attack:  400 * time.Millisecond,
		Hit:     250 * time.Millisecond,
		Defend:  300 * time.Millisecond,
		Cast:    600 * time.Millisecond,
		UseItem: 350 * time.Millisecond,
		Death:   500 * time.Millisecond,
	}
}

type playing struct {
	req     Request
	elapsed time.Duration
	length  time.Duration
}

// Simulated is a headless Service advanced by the battle's frame clock.
// Requests complete on the first Update at which their duration has elapsed.
// It is safe for concurrent use.
type Simulated struct {
	mu        sync.Mutex
	durations map[Kind]time.Duration
	active    []*playing
	plays     []Request
	completer Completer
}

// NewSimulated creates a Simulated service. Kinds missing from durations complete on the next Update.
func NewSimulated(durations map[Kind]time.Duration) *Simulated {
	return &Simulated{durations: durations}
}

// NewInstant creates a Simulated service whose animations all complete on the next Update.
func NewInstant() *Simulated {
	return NewSimulated(nil)
}

// Bind implements Binder.
func (s *Simulated) Bind(c Completer) {
	s.mu.Lock()
	s.completer = c
	s.mu.Unlock()
}

// Play implements Service.
func (s *Simulated) Play(req Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays = append(s.plays, req)
	if req.Token == "" {
		return
	}
	s.active = append(s.active, &playing{req: req, length: s.durations[req.Kind]})
}

// Update implements Updater.
func (s *Simulated) Update(dt time.Duration) {
	s.mu.Lock()
	var done []Token
	kept := s.active[:0]
	for _, p := range s.active {
		p.elapsed += dt
		if p.elapsed >= p.length {
			done = append(done, p.req.Token)
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(s.active); i++ {
		s.active[i] = nil
	}
	s.active = kept
	c := s.completer
	s.mu.Unlock()
	if c == nil {
		return
	}
	for _, tok := range done {
		c.Complete(tok)
	}
}

// Plays returns a copy of every request received, in order.
func (s *Simulated) Plays() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.plays))
	copy(out, s.plays)
	return out
}

// PlaysOf returns the requests received for actorID, in order.
func (s *Simulated) PlaysOf(actorID string) []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Kind
	for _, r := range s.plays {
		if r.ActorID == actorID {
			out = append(out, r.Kind)
		}
	}
	return out
}

// Timed is a Service that completes requests on wall-clock timers, reporting
// completion from timer goroutines the way an external renderer would.
// It is safe for concurrent use.
type Timed struct {
	mu        sync.Mutex
	durations map[Kind]time.Duration
	timers    map[Token]*time.Timer
	completer Completer
	stopped   bool
}

// NewTimed creates a Timed service.
func NewTimed(durations map[Kind]time.Duration) *Timed {
	return &Timed{durations: durations, timers: make(map[Token]*time.Timer)}
}

// Bind implements Binder.
func (t *Timed) Bind(c Completer) {
	t.mu.Lock()
	t.completer = c
	t.mu.Unlock()
}

// Play implements Service.
func (t *Timed) Play(req Request) {
	if req.Token == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	tok := req.Token
	t.timers[tok] = time.AfterFunc(t.durations[req.Kind], func() {
		t.mu.Lock()
		delete(t.timers, tok)
		c, stopped := t.completer, t.stopped
		t.mu.Unlock()
		if c != nil && !stopped {
			c.Complete(tok)
		}
	})
}

// Stop cancels every outstanding timer. Safe to call multiple times.
//
// Postcondition: No timer started before Stop reports completion after its callback observes the stop.
func (t *Timed) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for tok, tm := range t.timers {
		tm.Stop()
		delete(t.timers, tok)
	}
}

// Stalled is a Service that records requests and never reports completion.
type Stalled struct {
	mu    sync.Mutex
	plays []Request
}

// Play implements Service.
func (s *Stalled) Play(req Request) {
	s.mu.Lock()
	s.plays = append(s.plays, req)
	s.mu.Unlock()
}

// Plays returns a copy of every request received, in order.
func (s *Stalled) Plays() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.plays))
	copy(out, s.plays)
	return out
}
