package battle

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/loop"
	"github.com/cory-johannsen/skirmish/internal/game/pipeline"
)

// state is one node of the battle state machine. Enter starts the state's
// work; the state finishes by emitting exactly one outcome. Exit releases
// anything the state still holds.
type state interface {
	Enter()
	Exit()
}

type startState struct {
	b     *Battle
	timer *loop.Timer
}

func (s *startState) Enter() {
	s.timer = s.b.after(s.b.settings.IntroDelay, func() {
		s.b.emit(TagSetupComplete, nil)
	})
}

func (s *startState) Exit() { stopTimer(&s.timer) }

// playerTurnState waits for a command for a player-controlled actor, or lets
// the autopilot decide when the battle has no input port.
type playerTurnState struct {
	b           *Battle
	timer       *loop.Timer
	listener    *listener
	unsubscribe func()
}

func (s *playerTurnState) Enter() {
	b := s.b
	if !b.beginTurn() {
		return
	}
	if b.opts.Input == nil {
		s.timer = b.after(b.settings.ThinkDelay, func() { b.decide(b.opts.Autopilot) })
		return
	}
	s.listener = newListener(b, b.current.ID, nil)
	s.unsubscribe = b.opts.Input.Subscribe(s.listener)
}

func (s *playerTurnState) Exit() {
	stopTimer(&s.timer)
	s.listener, s.unsubscribe = closeListener(s.listener, s.unsubscribe)
}

func (s *playerTurnState) command(cmd Command) {
	b := s.b
	action, err := b.buildAction(cmd)
	if err != nil {
		b.logger.Warn("command rejected", zap.String("actor", cmd.ActorID), zap.Error(err))
		s.listener.reopen()
		return
	}
	if action.Kind != pipeline.ActionSkip && action.PrimaryTarget == nil && action.Skill.Target.NeedsSelection() {
		b.emit(TagSkillChosen, action)
		return
	}
	b.emit(TagActionChosen, action)
}

type targetSelectionState struct {
	b           *Battle
	listener    *listener
	unsubscribe func()
}

func (s *targetSelectionState) Enter() {
	b := s.b
	act := b.action
	candidates := b.resolver.Candidates(act.Skill.Target, act.Actor, act.Skill.Revives())
	if len(candidates) == 0 {
		b.logger.Warn("no valid targets; cancelling selection",
			zap.String("actor", act.Actor.ID),
			zap.String("skill", act.Skill.ID),
		)
		b.emit(TagTargetCancelled, nil)
		return
	}
	b.selection = &Selection{Candidates: candidates}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	s.listener = newListener(b, act.Actor.ID, ids)
	s.unsubscribe = b.opts.Input.Subscribe(s.listener)
}

func (s *targetSelectionState) Exit() {
	s.b.selection = nil
	s.listener, s.unsubscribe = closeListener(s.listener, s.unsubscribe)
}

func (s *targetSelectionState) navigate(delta int) {
	sel := s.b.selection
	n := len(sel.Candidates)
	sel.Cursor = ((sel.Cursor+delta)%n + n) % n
}

func (s *targetSelectionState) pick(id string) {
	sel := s.b.selection
	for i, c := range sel.Candidates {
		if c.ID == id {
			sel.Cursor = i
			return
		}
	}
}

func (s *targetSelectionState) confirm() {
	b := s.b
	act := b.action
	act.PrimaryTarget = b.selection.Highlighted()
	b.emit(TagTargetSelected, act)
}

func (s *targetSelectionState) cancel() { s.b.emit(TagTargetCancelled, nil) }

type enemyTurnState struct {
	b     *Battle
	timer *loop.Timer
}

func (s *enemyTurnState) Enter() {
	b := s.b
	if !b.beginTurn() {
		return
	}
	s.timer = b.after(b.settings.ThinkDelay, func() { b.decide(b.opts.Enemy) })
}

func (s *enemyTurnState) Exit() { stopTimer(&s.timer) }

type executionState struct {
	b *Battle
}

func (s *executionState) Enter() {
	b := s.b
	epoch := b.epoch
	b.pipeline.Execute(b.action, func(r pipeline.Report) {
		b.log = append(b.log, r.Events...)
		fields := []zap.Field{
			zap.String("action", r.Action.ID),
			zap.Stringer("kind", r.Action.Kind),
			zap.Stringer("outcome", r.Outcome),
			zap.Int("targets", len(r.Targets)),
			zap.Int("mana_spent", r.ManaSpent),
		}
		if r.Err != nil {
			fields = append(fields, zap.Error(r.Err))
		}
		b.logger.Info("action resolved", fields...)
		if b.epoch == epoch {
			b.emit(TagActionFullyComplete, r.Action)
		}
	})
}

func (s *executionState) Exit() {}

// endState shows the victory or defeat screen for OutcomeDelay.
type endState struct {
	b     *Battle
	tag   Tag
	timer *loop.Timer
}

func (s *endState) Enter() {
	s.b.machines.SyncAll()
	s.timer = s.b.after(s.b.settings.OutcomeDelay, func() { s.b.emit(s.tag, nil) })
}

func (s *endState) Exit() { stopTimer(&s.timer) }

func stopTimer(t **loop.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// listener adapts InputListener calls onto the battle loop for one state
// activation. Synchronous checks only read immutable fields and atomics.
type listener struct {
	b       *Battle
	epoch   uint64
	actorID string
	// targets is non-nil while selecting.
	targets []string
	closed  atomic.Bool
	used    atomic.Bool
}

func newListener(b *Battle, actorID string, targets []string) *listener {
	return &listener{b: b, epoch: b.epoch, actorID: actorID, targets: targets}
}

func closeListener(l *listener, unsubscribe func()) (*listener, func()) {
	if l != nil {
		l.closed.Store(true)
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	return nil, nil
}

func (l *listener) selecting() bool { return l.targets != nil }

// reopen lets the listener accept another command after a rejected one.
func (l *listener) reopen() {
	if l != nil {
		l.used.Store(false)
	}
}

// post runs fn on the loop if the state that created l is still active.
func (l *listener) post(fn func()) {
	l.b.loop.Post(func() {
		if l.closed.Load() || l.b.epoch != l.epoch {
			l.b.logger.Debug("stale input ignored")
			return
		}
		fn()
	})
}

func (l *listener) OnCommand(cmd Command) bool {
	if l.closed.Load() || l.selecting() || cmd.ActorID != l.actorID {
		return false
	}
	if !l.used.CompareAndSwap(false, true) {
		return false
	}
	l.post(func() { l.b.states[StatePlayerTurn].(*playerTurnState).command(cmd) })
	return true
}

func (l *listener) OnNavigate(delta int) bool {
	if l.closed.Load() || !l.selecting() || l.used.Load() {
		return false
	}
	l.post(func() { l.b.states[StateTargetSelection].(*targetSelectionState).navigate(delta) })
	return true
}

func (l *listener) OnPickTarget(targetID string) bool {
	if l.closed.Load() || !l.selecting() || l.used.Load() {
		return false
	}
	found := false
	for _, id := range l.targets {
		if id == targetID {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	l.post(func() { l.b.states[StateTargetSelection].(*targetSelectionState).pick(targetID) })
	return true
}

func (l *listener) OnConfirm() bool {
	if l.closed.Load() || !l.selecting() || !l.used.CompareAndSwap(false, true) {
		return false
	}
	l.post(func() { l.b.states[StateTargetSelection].(*targetSelectionState).confirm() })
	return true
}

func (l *listener) OnCancel() bool {
	if l.closed.Load() || !l.selecting() || !l.used.CompareAndSwap(false, true) {
		return false
	}
	l.post(func() { l.b.states[StateTargetSelection].(*targetSelectionState).cancel() })
	return true
}

// findActor returns the actor in group with the given ID, or nil.
func findActor(group []*actor.Actor, id string) *actor.Actor {
	for _, a := range group {
		if a.ID == id {
			return a
		}
	}
	return nil
}
