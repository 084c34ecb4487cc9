// Package animation defines the "play this and tell me when it is done"
// boundary between the battle core and whatever renders it. Every request
// that needs a completion carries an intent token; the Director resolves
// exactly one waiter per token, bounded by a timeout.
package animation

import "time"

// Kind is an animation an actor can play.
type Kind int

const (
	Idle Kind = iota
	Attack
	Hit
	Defend
	Cast
	UseItem
	Death
)

var kindNames = []string{"idle", "attack", "hit", "defend", "cast", "use_item", "death"}

// String returns the snake_case animation name.
func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Token identifies one animation request awaiting completion.
// Fire-and-forget requests carry the empty token.
type Token string

// Request asks a Service to play an animation.
type Request struct {
	Token    Token
	ActorID  string
	Kind     Kind
	TargetID string
}

// Service plays animations. For every request with a non-empty Token the
// service must eventually call Completer.Complete with that token.
type Service interface {
	Play(req Request)
}

// Completer receives completion signals. Implementations must be safe for concurrent use.
type Completer interface {
	Complete(token Token)
}

// Binder is implemented by services that report completions themselves.
type Binder interface {
	Bind(c Completer)
}

// Updater is implemented by services advanced by the battle's frame clock.
type Updater interface {
	Update(dt time.Duration)
}

// Completion is delivered to the waiter registered for a token.
type Completion struct {
	Token Token
	Kind  Kind
	// TimedOut is set when the wait bound elapsed before the service reported completion.
	TimedOut bool
}
