package pipeline

import (
	"errors"

	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/animation"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// ActionKind is what an actor chose to do with its turn.
type ActionKind int

const (
	ActionAttack ActionKind = iota
	ActionDefend
	ActionMagic
	ActionItem
	ActionSkill
	ActionSkip
)

var actionKindNames = []string{"attack", "defend", "magic", "item", "skill", "skip"}

// String returns the action kind name.
func (k ActionKind) String() string {
	if int(k) >= 0 && int(k) < len(actionKindNames) {
		return actionKindNames[k]
	}
	return "unknown"
}

// UsesSkill reports whether the kind requires an explicitly chosen skill.
func (k ActionKind) UsesSkill() bool {
	return k == ActionMagic || k == ActionItem || k == ActionSkill
}

// Sentinel errors carried by aborted or failed reports.
var (
	ErrActorMissing     = errors.New("action has no actor")
	ErrSkillMissing     = errors.New("action has no skill")
	ErrInsufficientMana = errors.New("insufficient mana")
	ErrActorDefeated    = errors.New("actor is defeated")
	ErrActionMissing    = errors.New("no action")
)

// PendingAction is one actor's decision for its turn. The pipeline consumes it
// exactly once; only Targets may be filled in during resolution.
type PendingAction struct {
	ID    string
	Actor *actor.Actor
	Kind  ActionKind
	Skill *skill.Skill
	// Rank is the 1-based proficiency rank; 0 means the actor's known rank, or 1.
	Rank          int
	PrimaryTarget *actor.Actor
	// Targets is a pre-resolved target list. Empty means resolve at execution time.
	Targets []*actor.Actor
}

// NewAction creates a PendingAction with a fresh ID.
func NewAction(a *actor.Actor, kind ActionKind, s *skill.Skill, primary *actor.Actor) *PendingAction {
	return &PendingAction{ID: uuid.NewString(), Actor: a, Kind: kind, Skill: s, PrimaryTarget: primary}
}

// Skip creates a PendingAction that passes the actor's turn.
func Skip(a *actor.Actor) *PendingAction {
	return NewAction(a, ActionSkip, nil, nil)
}

// Outcome classifies how an action ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeSkipped
	OutcomeAborted
	OutcomeInsufficientMana
)

var outcomeNames = []string{"completed", "skipped", "aborted", "insufficient_mana"}

// String returns the outcome name.
func (o Outcome) String() string {
	if int(o) >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Event is one combat-log entry: an effect rolled against one target.
type Event struct {
	ActionID string
	ActorID  string
	TargetID string
	SkillID  string
	Effect   skill.EffectKind
	// Landed is false when the chance roll failed or the target was skipped.
	Landed   bool
	Success  bool
	Amount   int
	Critical bool
	StatusID string
	// Defeated reports the target's state after the effect.
	Defeated bool
	Note     string
}

// Report is delivered exactly once per executed action.
type Report struct {
	Action    *PendingAction
	Outcome   Outcome
	Err       error
	ManaSpent int
	Targets   []*actor.Actor
	Events    []Event
	// TimedOut counts animation waits that ended on the timeout.
	TimedOut int
}

// Reporter receives every Report in addition to the done callback.
type Reporter interface {
	OnActionReport(r Report)
}

// motionFor maps an action kind to the caster's animation.
func motionFor(k ActionKind, s *skill.Skill) animation.Kind {
	switch k {
	case ActionAttack:
		return animation.Attack
	case ActionDefend:
		return animation.Defend
	case ActionMagic:
		return animation.Cast
	case ActionItem:
		return animation.UseItem
	}
	if s == nil {
		return animation.Attack
	}
	switch s.Motion {
	case skill.MotionCast:
		return animation.Cast
	case skill.MotionUseItem:
		return animation.UseItem
	case skill.MotionDefend:
		return animation.Defend
	default:
		return animation.Attack
	}
}
