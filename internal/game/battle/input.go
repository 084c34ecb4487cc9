package battle

import (
	"sync"

	"github.com/cory-johannsen/skirmish/internal/game/pipeline"
)

// Command is a player's choice for the actor whose turn it is.
// An empty TargetID on a skill that needs one opens target selection.
type Command struct {
	ActorID  string
	Kind     pipeline.ActionKind
	SkillID  string
	TargetID string
}

// InputListener receives player input while a battle waits on it. Every
// method may be called from any goroutine and reports whether the event was
// accepted by the current state. Accepted events are handled on the battle loop.
type InputListener interface {
	OnCommand(cmd Command) bool
	OnNavigate(delta int) bool
	OnConfirm() bool
	OnCancel() bool
	OnPickTarget(targetID string) bool
}

// InputPort connects a battle to a source of player input.
type InputPort interface {
	// Subscribe registers l as the only listener and returns a function that
	// removes it. A later Subscribe replaces any earlier listener.
	Subscribe(l InputListener) (unsubscribe func())
}

type inputKind int

const (
	inputCommand inputKind = iota
	inputNavigate
	inputConfirm
	inputCancel
	inputPick
)

type inputEvent struct {
	kind   inputKind
	cmd    Command
	delta  int
	target string
}

// DefaultQueueLimit bounds how many unheard events an InputQueue retains.
const DefaultQueueLimit = 64

// InputQueue is an InputPort fed by producers on any goroutine. Events are
// offered in order to the subscribed listener. Events that arrive while nobody
// listens are retained and offered on the next Subscribe; events a listener
// rejects are dropped. It is safe for concurrent use.
type InputQueue struct {
	mu       sync.Mutex
	listener InputListener
	gen      uint64
	pending  []inputEvent
	limit    int
}

// NewInputQueue creates an empty InputQueue retaining at most DefaultQueueLimit events.
func NewInputQueue() *InputQueue {
	return &InputQueue{limit: DefaultQueueLimit}
}

// Subscribe implements InputPort.
//
// Postcondition: retained events have been offered to l in arrival order and
// the queue no longer holds them, whether or not l accepted them.
func (q *InputQueue) Subscribe(l InputListener) func() {
	q.mu.Lock()
	q.gen++
	gen := q.gen
	q.listener = l
	retained := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, ev := range retained {
		deliver(l, ev)
	}

	return func() {
		q.mu.Lock()
		if q.gen == gen {
			q.listener = nil
		}
		q.mu.Unlock()
	}
}

// Command submits a player command.
func (q *InputQueue) Command(cmd Command) bool {
	return q.push(inputEvent{kind: inputCommand, cmd: cmd})
}

// Navigate moves the target cursor by delta.
func (q *InputQueue) Navigate(delta int) bool {
	return q.push(inputEvent{kind: inputNavigate, delta: delta})
}

// Confirm accepts the highlighted target.
func (q *InputQueue) Confirm() bool { return q.push(inputEvent{kind: inputConfirm}) }

// Cancel backs out of target selection.
func (q *InputQueue) Cancel() bool { return q.push(inputEvent{kind: inputCancel}) }

// Pick highlights the target with the given actor ID.
func (q *InputQueue) Pick(targetID string) bool {
	return q.push(inputEvent{kind: inputPick, target: targetID})
}

// Pending returns the number of events waiting for a listener.
func (q *InputQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// push offers ev to the current listener, or retains it while nobody listens.
// An event the listener rejects is dropped so it cannot reach a later turn.
// It returns whether the listener accepted it.
func (q *InputQueue) push(ev inputEvent) bool {
	q.mu.Lock()
	l := q.listener
	if l == nil {
		q.pending = q.trim(append(q.pending, ev))
		q.mu.Unlock()
		return false
	}
	q.mu.Unlock()
	return deliver(l, ev)
}

// trim drops the oldest events beyond the limit. Caller holds q.mu.
func (q *InputQueue) trim(events []inputEvent) []inputEvent {
	if q.limit > 0 && len(events) > q.limit {
		return events[len(events)-q.limit:]
	}
	return events
}

func deliver(l InputListener, ev inputEvent) bool {
	switch ev.kind {
	case inputCommand:
		return l.OnCommand(ev.cmd)
	case inputNavigate:
		return l.OnNavigate(ev.delta)
	case inputConfirm:
		return l.OnConfirm()
	case inputCancel:
		return l.OnCancel()
	case inputPick:
		return l.OnPickTarget(ev.target)
	}
	return false
}
