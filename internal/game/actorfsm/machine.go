// Package actorfsm drives one actor's animation state: Idle, an action or
// reaction state that waits on a single animation token, and Dead.
package actorfsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/animation"
)

// State names.
const (
	StateIdle      = "idle"
	StateAttacking = "attacking"
	StateReacting  = "reacting"
	StateDefending = "defending"
	StateCasting   = "casting"
	StateUsingItem = "using_item"
	StateDead      = "dead"
)

// Event names.
const (
	EventAttack  = "attack"
	EventReact   = "react"
	EventDefend  = "defend"
	EventCast    = "cast"
	EventUseItem = "use_item"
	EventFinish  = "finish"
	EventDie     = "die"
	EventRevive  = "revive"
)

var actionStates = []string{StateAttacking, StateReacting, StateDefending, StateCasting, StateUsingItem}

// eventFor maps an animation kind to the event entering its state.
var eventFor = map[animation.Kind]string{
	animation.Attack:  EventAttack,
	animation.Hit:     EventReact,
	animation.Defend:  EventDefend,
	animation.Cast:    EventCast,
	animation.UseItem: EventUseItem,
}

// Outcome is reported to the caller of Perform.
type Outcome struct {
	Kind animation.Kind
	// Performed is false when the machine could not enter the requested state.
	Performed bool
	TimedOut  bool
	// Defeated is set when the actor ended the animation defeated.
	Defeated bool
}

// Machine is the animation state machine for one actor. It belongs to the
// battle loop goroutine.
type Machine struct {
	actor    *actor.Actor
	director *animation.Director
	logger   *zap.Logger
	fsm      *fsm.FSM

	// The request being entered; consumed by the enter_state callback.
	reqKind   animation.Kind
	reqTarget string
	reqDone   func(Outcome)
	token     animation.Token
}

// New creates a Machine for a in the Idle state, or Dead when a is already defeated.
//
// Precondition: a and director must be non-nil.
func New(a *actor.Actor, director *animation.Director, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{actor: a, director: director, logger: logger.With(zap.String("actor", a.ID))}

	notDead := append([]string{StateIdle}, actionStates...)
	m.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventAttack, Src: []string{StateIdle}, Dst: StateAttacking},
			{Name: EventReact, Src: []string{StateIdle}, Dst: StateReacting},
			{Name: EventDefend, Src: []string{StateIdle}, Dst: StateDefending},
			{Name: EventCast, Src: []string{StateIdle}, Dst: StateCasting},
			{Name: EventUseItem, Src: []string{StateIdle}, Dst: StateUsingItem},
			{Name: EventFinish, Src: actionStates, Dst: StateIdle},
			{Name: EventDie, Src: notDead, Dst: StateDead},
			{Name: EventRevive, Src: []string{StateDead}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": m.enterState,
		},
	)
	if a.IsDefeated() {
		m.fsm.SetState(StateDead)
	}
	return m
}

// Actor returns the actor this machine animates.
func (m *Machine) Actor() *actor.Actor { return m.actor }

// State returns the current state name.
func (m *Machine) State() string { return m.fsm.Current() }

// IsIdle reports whether the actor is resting and can start an animation.
func (m *Machine) IsIdle() bool { return m.fsm.Is(StateIdle) }

// IsDead reports whether the machine is in the terminal Dead state.
func (m *Machine) IsDead() bool { return m.fsm.Is(StateDead) }

// Perform enters the state for kind and plays its animation. onDone runs once
// the animation completes (or times out) and the machine has returned to Idle,
// or to Dead when the actor was defeated in the interim.
//
// Postcondition: onDone runs exactly once on the loop goroutine. Returns false,
// and reports Performed=false, when the machine is not Idle or kind has no state.
func (m *Machine) Perform(kind animation.Kind, targetID string, onDone func(Outcome)) bool {
	event, ok := eventFor[kind]
	if !ok || !m.fsm.Can(event) {
		m.logger.Debug("animation request rejected",
			zap.String("animation", kind.String()),
			zap.String("state", m.fsm.Current()),
		)
		m.finishLater(onDone, Outcome{Kind: kind, Defeated: m.actor.IsDefeated()})
		return false
	}
	m.reqKind, m.reqTarget, m.reqDone = kind, targetID, onDone
	if err := m.fsm.Event(context.Background(), event); err != nil {
		m.logger.Warn("actor transition failed", zap.String("event", event), zap.Error(err))
		m.reqDone = nil
		m.finishLater(onDone, Outcome{Kind: kind, Defeated: m.actor.IsDefeated()})
		return false
	}
	return true
}

// Settle returns the machine to a resting state matching the actor's health:
// Dead when defeated, otherwise Idle. It is a no-op while an animation is pending.
func (m *Machine) Settle() {
	if m.token != "" {
		return
	}
	m.Sync()
}

// Sync forces Dead when the actor has been defeated and revives the machine to
// Idle when health was restored externally.
func (m *Machine) Sync() {
	switch {
	case m.actor.IsDefeated() && !m.fsm.Is(StateDead):
		m.event(EventDie)
	case !m.actor.IsDefeated() && m.fsm.Is(StateDead):
		m.event(EventRevive)
	}
}

func (m *Machine) enterState(_ context.Context, e *fsm.Event) {
	switch e.Dst {
	case StateIdle:
		m.director.Fire(m.actor.ID, animation.Idle, "")
	case StateDead:
		m.director.Fire(m.actor.ID, animation.Death, "")
	default:
		kind, target, done := m.reqKind, m.reqTarget, m.reqDone
		m.reqDone = nil
		m.token = m.director.Play(m.actor.ID, kind, target, func(c animation.Completion) {
			m.animationDone(c, done)
		})
	}
}

func (m *Machine) animationDone(c animation.Completion, done func(Outcome)) {
	m.token = ""
	if m.actor.IsDefeated() {
		if !m.fsm.Is(StateDead) {
			m.event(EventDie)
		}
	} else if !m.fsm.Is(StateIdle) && !m.fsm.Is(StateDead) {
		m.event(EventFinish)
	}
	if done != nil {
		done(Outcome{Kind: c.Kind, Performed: true, TimedOut: c.TimedOut, Defeated: m.actor.IsDefeated()})
	}
}

func (m *Machine) event(name string) {
	err := m.fsm.Event(context.Background(), name)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		m.logger.Warn("actor transition failed", zap.String("event", name), zap.Error(err))
		return
	}
	m.logger.Debug("actor state", zap.String("event", name), zap.String("state", m.fsm.Current()))
}

// finishLater reports a rejected request on the next loop drain so callers
// never observe onDone re-entrantly.
func (m *Machine) finishLater(onDone func(Outcome), out Outcome) {
	if onDone == nil {
		return
	}
	m.director.Defer(func() { onDone(out) })
}
