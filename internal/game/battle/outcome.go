package battle

import (
	"context"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/pipeline"
)

// Tag identifies how a state finished.
type Tag int

const (
	TagSetupComplete Tag = iota
	TagActionChosen
	TagSkillChosen
	TagTargetSelected
	TagTargetCancelled
	TagTurnSkipped
	TagActionFullyComplete
	TagVictoryProcessed
	TagDefeatProcessed
)

var tagNames = []string{
	"setup_complete", "action_chosen", "skill_chosen", "target_selected", "target_cancelled",
	"turn_skipped", "action_fully_complete", "victory_processed", "defeat_processed",
}

// String returns the tag name.
func (t Tag) String() string {
	if int(t) >= 0 && int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// outcomeEvent is produced once when a state completes and consumed by Step.
type outcomeEvent struct {
	tag    Tag
	action *pipeline.PendingAction
	epoch  uint64
}

// Outcome is how a finished battle ended.
type Outcome int

const (
	OutcomeVictory Outcome = iota
	OutcomeDefeat
)

// String returns "victory" or "defeat".
func (o Outcome) String() string {
	if o == OutcomeDefeat {
		return "defeat"
	}
	return "victory"
}

// Result summarises a finished battle.
type Result struct {
	BattleID   string
	Outcome    Outcome
	Turns      int
	Friendlies []*actor.Actor
	Hostiles   []*actor.Actor
	Log        []pipeline.Event
}

// FormationProvider supplies both rosters when a battle starts.
type FormationProvider interface {
	Spawn(ctx context.Context) (friendlies, hostiles []*actor.Actor, err error)
}

// FixedFormation is a FormationProvider returning the same prebuilt rosters.
type FixedFormation struct {
	Friendlies []*actor.Actor
	Hostiles   []*actor.Actor
}

// Spawn implements FormationProvider.
func (f FixedFormation) Spawn(context.Context) ([]*actor.Actor, []*actor.Actor, error) {
	return f.Friendlies, f.Hostiles, nil
}

// OutcomeHandler is invoked once when a battle reaches Victory or Defeat.
type OutcomeHandler interface {
	OnBattleEnd(ctx context.Context, result *Result) error
}

// OutcomeHandlerFunc adapts a function to OutcomeHandler.
type OutcomeHandlerFunc func(ctx context.Context, result *Result) error

// OnBattleEnd implements OutcomeHandler.
func (f OutcomeHandlerFunc) OnBattleEnd(ctx context.Context, result *Result) error {
	return f(ctx, result)
}

// Strategy decides an AI-controlled actor's action. A nil result skips the turn.
type Strategy interface {
	DecideAction(self *actor.Actor, allies, enemies []*actor.Actor) *pipeline.PendingAction
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(self *actor.Actor, allies, enemies []*actor.Actor) *pipeline.PendingAction

// DecideAction implements Strategy.
func (f StrategyFunc) DecideAction(self *actor.Actor, allies, enemies []*actor.Actor) *pipeline.PendingAction {
	return f(self, allies, enemies)
}
