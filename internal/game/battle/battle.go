// Package battle drives one party-versus-party encounter: it owns the battle
// loop, the turn scheduler, the action pipeline, and the top-level state
// machine that moves between setup, player and enemy turns, target selection,
// action execution, and the victory or defeat screens.
package battle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/actorfsm"
	"github.com/cory-johannsen/skirmish/internal/game/animation"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/loop"
	"github.com/cory-johannsen/skirmish/internal/game/pipeline"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/game/status"
	"github.com/cory-johannsen/skirmish/internal/game/targeting"
	"github.com/cory-johannsen/skirmish/internal/game/turnorder"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

// Battle state names.
const (
	StateStart           = "start"
	StatePlayerTurn      = "player_turn"
	StateTargetSelection = "target_selection"
	StateEnemyTurn       = "enemy_turn"
	StateActionExecution = "action_execution"
	StateVictory         = "victory"
	StateDefeat          = "defeat"
)

const (
	eventPlayerTurn   = "player_turn"
	eventEnemyTurn    = "enemy_turn"
	eventSelectTarget = "select_target"
	eventExecute      = "execute"
	eventCancel       = "cancel"
	eventWin          = "win"
	eventLose         = "lose"
)

var (
	// ErrStalled is returned when a simulated battle exceeds its frame budget.
	ErrStalled = errors.New("battle did not finish within the frame budget")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("battle already started")
)

// Options configures a Battle.
type Options struct {
	// ID defaults to a fresh UUID.
	ID string
	// Settings defaults to DefaultSettings when zero.
	Settings   Settings
	Formations FormationProvider
	// Skills lacking Defend gets the built-in one at Settings.DefendMultiplier.
	Skills *skill.Registry
	// Statuses defaults to an empty registry.
	Statuses *status.Registry
	// Source defaults to a crypto-backed source.
	Source dice.Source
	// Animation may be nil, in which case every animation completes on the next drain.
	Animation animation.Service
	// Input feeds player turns. When nil, Autopilot decides for player-controlled actors.
	Input     InputPort
	Enemy     Strategy
	Autopilot Strategy
	Outcome   OutcomeHandler
	Reporter  pipeline.Reporter
	Logger    *zap.Logger
}

// Selection is the live target-selection cursor.
type Selection struct {
	Candidates []*actor.Actor
	Cursor     int
}

// Highlighted returns the candidate under the cursor, or nil.
func (s *Selection) Highlighted() *actor.Actor {
	if s == nil || s.Cursor < 0 || s.Cursor >= len(s.Candidates) {
		return nil
	}
	return s.Candidates[s.Cursor]
}

// Battle is one encounter. Except for Done and the InputPort listeners, its
// methods must be called from the goroutine that drives Step.
type Battle struct {
	id       string
	opts     Options
	settings Settings
	logger   *zap.Logger

	loop     *loop.Loop
	roller   *dice.Roller
	director *animation.Director
	engine   *effect.Engine

	ctx        context.Context
	friendlies []*actor.Actor
	hostiles   []*actor.Actor
	resolver   *targeting.Resolver
	machines   *actorfsm.Set
	pipeline   *pipeline.Pipeline
	scheduler  *turnorder.Scheduler

	fsm         *fsm.FSM
	states      map[string]state
	epoch       uint64
	pending     *outcomeEvent
	current     *actor.Actor
	turnStarted bool
	action      *pipeline.PendingAction
	selection   *Selection
	turns       int
	log         []pipeline.Event

	started bool
	result  *Result
	done    chan struct{}
}

// New validates opts and creates an unstarted Battle.
//
// Precondition: opts.Formations, opts.Skills, and opts.Enemy must be non-nil,
// and at least one of opts.Input and opts.Autopilot must be set.
func New(opts Options) (*Battle, error) {
	switch {
	case opts.Formations == nil:
		return nil, fmt.Errorf("battle.New: formation provider must not be nil")
	case opts.Skills == nil:
		return nil, fmt.Errorf("battle.New: skill registry must not be nil")
	case opts.Enemy == nil:
		return nil, fmt.Errorf("battle.New: enemy strategy must not be nil")
	case opts.Input == nil && opts.Autopilot == nil:
		return nil, fmt.Errorf("battle.New: either an input port or an autopilot strategy is required")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Settings == (Settings{}) {
		opts.Settings = DefaultSettings()
	}
	if _, err := opts.Skills.Get(skill.DefendID); err != nil {
		opts.Skills = withDefend(opts.Skills, opts.Settings.DefendMultiplier)
	}
	if opts.Statuses == nil {
		opts.Statuses = status.NewRegistry()
	}
	if opts.Source == nil {
		opts.Source = dice.NewCryptoSource()
	}
	base := opts.Logger
	if base == nil {
		base = zap.NewNop()
	}
	logger := observability.ForBattle(base, opts.ID)

	b := &Battle{
		id:       opts.ID,
		opts:     opts,
		settings: opts.Settings,
		logger:   logger,
		loop:     loop.New(),
		done:     make(chan struct{}),
	}
	b.roller = dice.NewLoggedRoller(opts.Source, logger.Named("dice"))
	b.director = animation.NewDirector(b.loop, opts.Animation, opts.Settings.AnimationTimeout, logger.Named("animation"))
	b.engine = effect.NewEngine(opts.Settings.effect(), b.roller, opts.Statuses, logger.Named("effect"))
	b.states = map[string]state{
		StateStart:           &startState{b: b},
		StatePlayerTurn:      &playerTurnState{b: b},
		StateTargetSelection: &targetSelectionState{b: b},
		StateEnemyTurn:       &enemyTurnState{b: b},
		StateActionExecution: &executionState{b: b},
		StateVictory:         &endState{b: b, tag: TagVictoryProcessed},
		StateDefeat:          &endState{b: b, tag: TagDefeatProcessed},
	}
	b.fsm = fsm.NewFSM(
		StateStart,
		fsm.Events{
			{Name: eventPlayerTurn, Src: []string{StateStart, StatePlayerTurn, StateEnemyTurn, StateActionExecution}, Dst: StatePlayerTurn},
			{Name: eventEnemyTurn, Src: []string{StateStart, StatePlayerTurn, StateEnemyTurn, StateActionExecution}, Dst: StateEnemyTurn},
			{Name: eventSelectTarget, Src: []string{StatePlayerTurn}, Dst: StateTargetSelection},
			{Name: eventExecute, Src: []string{StatePlayerTurn, StateTargetSelection, StateEnemyTurn}, Dst: StateActionExecution},
			{Name: eventCancel, Src: []string{StateTargetSelection}, Dst: StatePlayerTurn},
			{Name: eventWin, Src: []string{StateStart, StatePlayerTurn, StateEnemyTurn, StateActionExecution}, Dst: StateVictory},
			{Name: eventLose, Src: []string{StateStart, StatePlayerTurn, StateEnemyTurn, StateActionExecution}, Dst: StateDefeat},
		},
		fsm.Callbacks{
			"leave_state": func(_ context.Context, e *fsm.Event) { b.states[e.Src].Exit() },
			"enter_state": func(_ context.Context, e *fsm.Event) { b.enter(b.states[e.Dst]) },
		},
	)
	return b, nil
}

// ID returns the battle ID.
func (b *Battle) ID() string { return b.id }

// Start spawns both parties and enters the start state.
//
// Precondition: Start has not been called before.
// Postcondition: State() == StateStart and SetupComplete is scheduled after the intro delay.
func (b *Battle) Start(ctx context.Context) error {
	if b.started {
		return ErrAlreadyStarted
	}
	friendlies, hostiles, err := b.opts.Formations.Spawn(ctx)
	if err != nil {
		return fmt.Errorf("spawning formation: %w", err)
	}
	b.ctx = ctx
	b.friendlies = friendlies
	b.hostiles = hostiles
	b.resolver = targeting.NewResolver(targeting.Teams{Friendlies: friendlies, Hostiles: hostiles}, b.roller, b.logger.Named("targeting"))
	b.machines = actorfsm.NewSet(b.director, b.logger.Named("actor"), friendlies, hostiles)
	b.pipeline = pipeline.New(pipeline.Deps{
		Engine:   b.engine,
		Resolver: b.resolver,
		Roller:   b.roller,
		Skills:   b.opts.Skills,
		Director: b.director,
		Machines: b.machines,
		Reporter: b.opts.Reporter,
		Logger:   b.logger.Named("pipeline"),
	})
	b.scheduler = turnorder.New(friendlies, hostiles)
	b.started = true
	b.logger.Info("battle started",
		zap.Int("friendlies", len(friendlies)),
		zap.Int("hostiles", len(hostiles)),
	)
	b.enter(b.states[StateStart])
	return nil
}

// Step advances the battle clock by dt, runs everything that became due, and
// consumes up to MaxTransitionsPerFrame state outcomes.
//
// Precondition: Start has succeeded.
func (b *Battle) Step(dt time.Duration) {
	if !b.started || b.Finished() {
		return
	}
	b.director.Update(dt)
	b.loop.Step(dt)
	for i := 0; i < b.settings.MaxTransitionsPerFrame; i++ {
		if !b.consume() {
			return
		}
		b.loop.Step(0)
	}
}

// Run drives the battle in real time at FrameInterval until it finishes or ctx is done.
func (b *Battle) Run(ctx context.Context) error {
	if !b.started {
		if err := b.Start(ctx); err != nil {
			return err
		}
	}
	ticker := time.NewTicker(b.settings.FrameInterval)
	defer ticker.Stop()
	last := time.Now()
	for !b.Finished() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			b.Step(now.Sub(last))
			last = now
		}
	}
	return nil
}

// RunSimulated drives the battle on a virtual clock, FrameInterval per frame,
// for at most maxFrames frames.
//
// Postcondition: Returns nil iff the battle finished; ErrStalled otherwise.
func (b *Battle) RunSimulated(ctx context.Context, maxFrames int) error {
	if !b.started {
		if err := b.Start(ctx); err != nil {
			return err
		}
	}
	for frame := 0; frame < maxFrames && !b.Finished(); frame++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.Step(b.settings.FrameInterval)
	}
	if !b.Finished() {
		b.logger.Warn("battle stalled", zap.Int("frames", maxFrames), zap.String("state", b.State()))
		return ErrStalled
	}
	return nil
}

// Done is closed once the battle reaches a final outcome. Safe for concurrent use.
func (b *Battle) Done() <-chan struct{} { return b.done }

// Finished reports whether the battle has ended.
func (b *Battle) Finished() bool { return b.result != nil }

// Result returns the final result, or nil while the battle is running.
func (b *Battle) Result() *Result { return b.result }

// State returns the current battle state name.
func (b *Battle) State() string { return b.fsm.Current() }

// Current returns the actor whose turn it is, or nil before the first turn.
func (b *Battle) Current() *actor.Actor { return b.current }

// Selection returns the target-selection cursor, or nil outside target selection.
func (b *Battle) Selection() *Selection { return b.selection }

// Turns returns the number of turns begun so far.
func (b *Battle) Turns() int { return b.turns }

// Friendlies returns the player party.
func (b *Battle) Friendlies() []*actor.Actor { return b.friendlies }

// Hostiles returns the enemy party.
func (b *Battle) Hostiles() []*actor.Actor { return b.hostiles }

// Log returns the combat log recorded so far.
func (b *Battle) Log() []pipeline.Event { return b.log }

// Machine returns the actor state machine for a, or nil.
func (b *Battle) Machine(a *actor.Actor) *actorfsm.Machine { return b.machines.MachineFor(a) }

// emit records the outcome of the state that is currently active.
// Only one outcome may be pending at a time.
func (b *Battle) emit(tag Tag, action *pipeline.PendingAction) {
	if b.pending != nil {
		b.logger.Warn("state outcome dropped; another outcome is pending",
			zap.Stringer("dropped", tag),
			zap.Stringer("pending", b.pending.tag),
		)
		return
	}
	b.pending = &outcomeEvent{tag: tag, action: action, epoch: b.epoch}
}

// consume applies the pending outcome, if any, and reports whether one was taken.
func (b *Battle) consume() bool {
	ev := b.pending
	if ev == nil {
		return false
	}
	b.pending = nil
	if ev.epoch != b.epoch {
		b.logger.Debug("stale state outcome ignored", zap.Stringer("tag", ev.tag))
		return true
	}
	b.logger.Debug("state outcome", zap.Stringer("tag", ev.tag), zap.String("state", b.State()))

	switch ev.tag {
	case TagSetupComplete, TagTurnSkipped, TagActionFullyComplete:
		b.afterTurn()
	case TagActionChosen, TagTargetSelected:
		b.action = ev.action
		b.transition(eventExecute)
	case TagSkillChosen:
		b.action = ev.action
		b.transition(eventSelectTarget)
	case TagTargetCancelled:
		b.action = nil
		b.transition(eventCancel)
	case TagVictoryProcessed:
		b.finish(OutcomeVictory)
	case TagDefeatProcessed:
		b.finish(OutcomeDefeat)
	}
	return true
}

func (b *Battle) afterTurn() {
	b.turnStarted = false
	b.action = nil
	b.machines.SyncAll()
	if b.checkEnd() {
		return
	}
	b.advance()
}

// checkEnd transitions to Victory or Defeat when a side is wiped out.
// A simultaneous wipe counts as a victory.
func (b *Battle) checkEnd() bool {
	switch {
	case !actor.AnyLiving(b.hostiles):
		b.transition(eventWin)
		return true
	case !actor.AnyLiving(b.friendlies):
		b.transition(eventLose)
		return true
	}
	return false
}

func (b *Battle) advance() {
	next, ok := b.scheduler.Next()
	if !ok {
		b.logger.Error("no living actor to schedule")
		b.transition(eventLose)
		return
	}
	b.current = next
	b.turns++
	if next.IsPlayerControlled() {
		b.transition(eventPlayerTurn)
		return
	}
	b.transition(eventEnemyTurn)
}

func (b *Battle) transition(name string) {
	err := b.fsm.Event(context.Background(), name)
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		// The same state starts over for the next actor.
		st := b.states[b.fsm.Current()]
		st.Exit()
		b.enter(st)
		return
	}
	if err != nil {
		b.logger.Error("battle transition rejected",
			zap.String("event", name),
			zap.String("state", b.State()),
			zap.Error(err),
		)
	}
}

func (b *Battle) enter(st state) {
	b.epoch++
	st.Enter()
}

// after schedules fn on the loop clock, dropping it if the state changes first.
func (b *Battle) after(d time.Duration, fn func()) *loop.Timer {
	epoch := b.epoch
	return b.loop.After(d, func() {
		if b.epoch == epoch {
			fn()
		}
	})
}

// beginTurn ticks the current actor's modifiers and statuses once per turn.
// It returns false when the turn has been skipped.
func (b *Battle) beginTurn() bool {
	a := b.current
	if b.turnStarted {
		return true
	}
	b.turnStarted = true

	expired := a.TickModifiers()
	report := a.Statuses.Tick()
	damage := 0
	if report.Damage > 0 {
		damage = a.ApplyDamage(report.Damage)
		b.log = append(b.log, pipeline.Event{
			ActorID: a.ID, TargetID: a.ID, Effect: skill.EffectDamage,
			Landed: true, Success: true, Amount: damage, Defeated: a.IsDefeated(), Note: "status damage",
		})
	}
	healed := 0
	if report.Healing > 0 && !a.IsDefeated() {
		healed = a.Heal(report.Healing)
		b.log = append(b.log, pipeline.Event{
			ActorID: a.ID, TargetID: a.ID, Effect: skill.EffectHeal,
			Landed: true, Success: true, Amount: healed, Note: "status healing",
		})
	}
	if m := b.machines.MachineFor(a); m != nil {
		m.Settle()
	}
	b.logger.Info("turn started",
		zap.String("actor", a.ID),
		zap.Int("turn", b.turns),
		zap.Int("cycle", b.scheduler.Cycle()),
		zap.Int("status_damage", damage),
		zap.Int("status_healing", healed),
		zap.Int("modifiers_expired", len(expired)),
		zap.Strings("statuses_expired", report.Expired),
	)
	if a.IsDefeated() || report.SkipTurn {
		b.logger.Info("turn skipped", zap.String("actor", a.ID), zap.Bool("defeated", a.IsDefeated()))
		b.emit(TagTurnSkipped, nil)
		return false
	}
	return true
}

// decide asks strategy for the current actor's action and emits it.
func (b *Battle) decide(strategy Strategy) {
	a := b.current
	teams := targeting.Teams{Friendlies: b.friendlies, Hostiles: b.hostiles}
	action := strategy.DecideAction(a, teams.Allies(a), teams.Opponents(a))
	if action == nil {
		b.logger.Warn("strategy returned no action; skipping turn", zap.String("actor", a.ID))
		action = pipeline.Skip(a)
	}
	if action.Actor != a {
		b.logger.Warn("strategy returned an action for another actor", zap.String("actor", a.ID))
		action.Actor = a
	}
	b.emit(TagActionChosen, action)
}

// buildAction converts a player command into a PendingAction for the current actor.
// withDefend returns a copy of reg that also holds the built-in Defend at
// multiplier. reg itself is left untouched since battles may share it.
func withDefend(reg *skill.Registry, multiplier float64) *skill.Registry {
	out := skill.NewRegistry(multiplier)
	for _, id := range reg.IDs() {
		if s, err := reg.Get(id); err == nil {
			out.Register(s)
		}
	}
	return out
}

func (b *Battle) buildAction(cmd Command) (*pipeline.PendingAction, error) {
	a := b.current
	var (
		sk  *skill.Skill
		err error
	)
	switch cmd.Kind {
	case pipeline.ActionSkip:
		return pipeline.Skip(a), nil
	case pipeline.ActionAttack:
		sk, err = b.opts.Skills.Get(skill.BasicAttackID)
	case pipeline.ActionDefend:
		sk, err = b.opts.Skills.Get(skill.DefendID)
	case pipeline.ActionMagic, pipeline.ActionSkill:
		sk, err = b.opts.Skills.Get(cmd.SkillID)
		if err == nil {
			if _, known := a.SkillRank(sk.ID); !known {
				err = fmt.Errorf("%s does not know skill %q", a.ID, sk.ID)
			}
		}
	case pipeline.ActionItem:
		sk, err = b.opts.Skills.Get(cmd.SkillID)
	default:
		err = fmt.Errorf("unknown action kind %d", cmd.Kind)
	}
	if err != nil {
		return nil, err
	}
	var primary *actor.Actor
	if cmd.TargetID != "" {
		if primary = b.find(cmd.TargetID); primary == nil {
			return nil, fmt.Errorf("unknown target %q", cmd.TargetID)
		}
	}
	return pipeline.NewAction(a, cmd.Kind, sk, primary), nil
}

func (b *Battle) find(id string) *actor.Actor {
	if a := findActor(b.friendlies, id); a != nil {
		return a
	}
	return findActor(b.hostiles, id)
}

func (b *Battle) finish(outcome Outcome) {
	b.result = &Result{
		BattleID:   b.id,
		Outcome:    outcome,
		Turns:      b.turns,
		Friendlies: b.friendlies,
		Hostiles:   b.hostiles,
		Log:        b.log,
	}
	b.logger.Info("battle finished",
		zap.Stringer("outcome", outcome),
		zap.Int("turns", b.turns),
		zap.Int("log_entries", len(b.log)),
	)
	if b.opts.Outcome != nil {
		if err := b.opts.Outcome.OnBattleEnd(b.ctx, b.result); err != nil {
			b.logger.Error("outcome handler failed", zap.Error(err))
		}
	}
	close(b.done)
}
