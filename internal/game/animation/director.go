package animation

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/loop"
)

type waiter struct {
	req    Request
	onDone func(Completion)
	timer  *loop.Timer
}

// Director issues animation requests on behalf of one battle and routes each
// completion to the single waiter registered for its token. Waiters always run
// on the battle loop.
type Director struct {
	loop    *loop.Loop
	service Service
	timeout time.Duration
	logger  *zap.Logger
	waiters map[Token]*waiter
}

// NewDirector creates a Director. A nil service completes every request on the
// next loop drain. timeout <= 0 disables the wait bound.
//
// Precondition: l must be non-nil.
// Postcondition: If service implements Binder it is bound to the returned Director.
func NewDirector(l *loop.Loop, service Service, timeout time.Duration, logger *zap.Logger) *Director {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Director{
		loop:    l,
		service: service,
		timeout: timeout,
		logger:  logger,
		waiters: make(map[Token]*waiter),
	}
	if b, ok := service.(Binder); ok {
		b.Bind(d)
	}
	return d
}

// Play requests kind for actorID and registers onDone as the only waiter for
// the new token. If the service never reports completion, onDone runs with
// TimedOut set once the timeout elapses on the loop clock.
//
// Precondition: called from the loop goroutine.
// Postcondition: onDone runs exactly once, on the loop goroutine.
func (d *Director) Play(actorID string, kind Kind, targetID string, onDone func(Completion)) Token {
	tok := Token(uuid.NewString())
	w := &waiter{
		req:    Request{Token: tok, ActorID: actorID, Kind: kind, TargetID: targetID},
		onDone: onDone,
	}
	d.waiters[tok] = w
	if d.timeout > 0 {
		w.timer = d.loop.After(d.timeout, func() { d.resolve(tok, true) })
	}
	if d.service == nil {
		d.loop.Defer(func() { d.resolve(tok, false) })
		return tok
	}
	d.service.Play(w.req)
	return tok
}

// Fire requests kind for actorID without waiting for completion.
func (d *Director) Fire(actorID string, kind Kind, targetID string) {
	if d.service == nil {
		return
	}
	d.service.Play(Request{ActorID: actorID, Kind: kind, TargetID: targetID})
}

// Complete reports that the animation for token finished. Safe for concurrent
// use; the waiter runs on the next loop drain. Unknown and duplicate tokens are ignored.
func (d *Director) Complete(token Token) {
	if token == "" {
		return
	}
	d.loop.Post(func() { d.resolve(token, false) })
}

// Update advances services driven by the frame clock.
func (d *Director) Update(dt time.Duration) {
	if u, ok := d.service.(Updater); ok {
		u.Update(dt)
	}
}

// Pending returns the number of waiters not yet resolved.
func (d *Director) Pending() int { return len(d.waiters) }

func (d *Director) resolve(token Token, timedOut bool) {
	w, ok := d.waiters[token]
	if !ok {
		return
	}
	delete(d.waiters, token)
	if w.timer != nil && !timedOut {
		w.timer.Stop()
	}
	if timedOut {
		d.logger.Warn("animation completion timed out; assuming complete",
			zap.String("actor", w.req.ActorID),
			zap.String("animation", w.req.Kind.String()),
			zap.String("token", string(token)),
			zap.Duration("timeout", d.timeout),
		)
	}
	if w.onDone != nil {
		w.onDone(Completion{Token: token, Kind: w.req.Kind, TimedOut: timedOut})
	}
}

// Defer runs fn on the battle loop after the current function returns.
func (d *Director) Defer(fn func()) { d.loop.Defer(fn) }
