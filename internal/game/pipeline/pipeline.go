// Package pipeline resolves one chosen action end to end: it spends mana,
// plays the caster's animation, resolves targets, rolls every target x effect
// pair, plays hit reactions for impactful effects, and applies each result.
// Every suspension is a single animation waiter; the pipeline never blocks the loop.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/actorfsm"
	"github.com/cory-johannsen/skirmish/internal/game/animation"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/game/targeting"
)

// Machines looks up the animation state machine for an actor.
// A nil result means the actor is not animated and waits complete immediately.
type Machines interface {
	MachineFor(a *actor.Actor) *actorfsm.Machine
}

// Deps bundles a Pipeline's collaborators.
type Deps struct {
	Engine   *effect.Engine
	Resolver *targeting.Resolver
	Roller   *dice.Roller
	Skills   *skill.Registry
	Director *animation.Director
	Machines Machines
	Reporter Reporter
	Logger   *zap.Logger
}

// Pipeline executes PendingActions. It belongs to the battle loop goroutine
// and runs at most one action at a time.
type Pipeline struct {
	deps   Deps
	logger *zap.Logger
	active *run
}

// New creates a Pipeline.
//
// Precondition: Engine, Resolver, Roller, Skills, and Director must be non-nil.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{deps: deps, logger: logger}
}

// Busy reports whether an action is executing.
func (p *Pipeline) Busy() bool { return p.active != nil }

// Execute runs action and calls done with its Report once every animation
// and effect has resolved. Abnormal conditions degrade to a skipped, aborted,
// or insufficient-mana report; done is always called.
//
// Precondition: called from the loop goroutine while Busy() is false.
// Postcondition: done runs exactly once, on a later loop drain.
func (p *Pipeline) Execute(action *PendingAction, done func(Report)) {
	r := &run{p: p, action: action, done: done, report: Report{Action: action}}
	if p.active != nil {
		p.logger.Warn("action submitted while another is executing; aborting it")
		r.abort(fmt.Errorf("pipeline busy"))
		return
	}
	p.active = r
	r.start()
}

// run is the continuation state of one executing action.
type run struct {
	p       *Pipeline
	action  *PendingAction
	done    func(Report)
	report  Report
	skill   *skill.Skill
	rank    *skill.Rank
	targets []*actor.Actor
	ti, ei  int
	ended   bool
}

func (r *run) start() {
	a := r.action
	switch {
	case a == nil:
		r.abort(ErrActionMissing)
		return
	case a.Actor == nil:
		r.abort(ErrActorMissing)
		return
	case a.Actor.IsDefeated():
		r.end(OutcomeSkipped, ErrActorDefeated)
		return
	case a.Kind == ActionSkip:
		r.end(OutcomeSkipped, nil)
		return
	}

	s, err := r.resolveSkill()
	if err != nil {
		r.abort(err)
		return
	}
	r.skill = s
	rankNum := a.Rank
	if rankNum == 0 {
		rankNum = 1
		if known, ok := a.Actor.SkillRank(s.ID); ok {
			rankNum = known
		}
	}
	rank, err := s.Rank(rankNum)
	if err != nil {
		r.abort(err)
		return
	}
	r.rank = rank

	if !a.Actor.SpendMana(rank.ManaCost) {
		r.p.logger.Info("skill fizzled: insufficient mana",
			zap.String("actor", a.Actor.ID),
			zap.String("skill", s.ID),
			zap.Int("cost", rank.ManaCost),
			zap.Int("mana", a.Actor.Mana),
		)
		r.end(OutcomeInsufficientMana, ErrInsufficientMana)
		return
	}
	r.report.ManaSpent = max(0, rank.ManaCost)

	r.perform(a.Actor, motionFor(a.Kind, s), targetID(a.PrimaryTarget), r.resolveTargets)
}

func (r *run) resolveSkill() (*skill.Skill, error) {
	a := r.action
	if a.Skill != nil {
		return a.Skill, nil
	}
	switch a.Kind {
	case ActionAttack:
		return r.p.deps.Skills.Get(skill.BasicAttackID)
	case ActionDefend:
		return r.p.deps.Skills.Get(skill.DefendID)
	default:
		return nil, fmt.Errorf("%s action: %w", a.Kind, ErrSkillMissing)
	}
}

func (r *run) resolveTargets() {
	a := r.action
	switch {
	case r.skill.Target == skill.TargetSelf:
		r.targets = []*actor.Actor{a.Actor}
	case len(a.Targets) > 0:
		r.targets = dedupe(a.Targets)
	default:
		r.targets = r.p.deps.Resolver.Resolve(r.skill.Target, a.Actor, a.PrimaryTarget, r.skill.Revives())
	}
	a.Targets = r.targets
	r.report.Targets = r.targets
	r.next()
}

// next walks the target x effect grid from the saved cursor until it either
// finishes or suspends on a hit reaction.
func (r *run) next() {
	for r.ti < len(r.targets) {
		if r.ei >= len(r.rank.Effects) {
			r.ti++
			r.ei = 0
			continue
		}
		target := r.targets[r.ti]
		def := r.rank.Effects[r.ei]
		r.ei++

		if target == nil {
			continue
		}
		if target.IsDefeated() && def.Kind != skill.EffectRevive {
			r.record(target, def, effect.Result{Kind: def.Kind}, false, "target defeated")
			continue
		}
		if !r.p.deps.Roller.Chance(def.Chance, "effect:"+def.Kind.String()) {
			r.record(target, def, effect.Result{Kind: def.Kind}, false, "missed")
			continue
		}
		if def.Kind.IsImpactful() {
			r.perform(target, animation.Hit, r.action.Actor.ID, func() {
				r.resolve(target, def)
				r.next()
			})
			return
		}
		r.resolve(target, def)
	}
	r.p.settle(r.action.Actor)
	r.end(OutcomeCompleted, nil)
}

func (r *run) resolve(target *actor.Actor, def skill.EffectDefinition) {
	res := r.p.deps.Engine.Resolve(effect.Input{
		Caster:  r.action.Actor,
		Target:  target,
		Skill:   r.skill,
		Rank:    r.rank,
		Def:     def,
		Channel: r.skill.Channel,
	})
	note := res.Reason
	if res.Success {
		note = r.p.apply(target, res)
	}
	r.p.settle(target)
	r.record(target, def, res, true, note)
}

// perform plays kind on a's machine and continues with then. Without a machine
// the continuation runs on the next loop drain.
func (r *run) perform(a *actor.Actor, kind animation.Kind, target string, then func()) {
	m := r.p.machineFor(a)
	if m == nil {
		r.p.deps.Director.Defer(then)
		return
	}
	m.Perform(kind, target, func(o actorfsm.Outcome) {
		if o.TimedOut {
			r.report.TimedOut++
		}
		then()
	})
}

func (r *run) record(target *actor.Actor, def skill.EffectDefinition, res effect.Result, landed bool, note string) {
	ev := Event{
		ActionID: r.action.ID,
		ActorID:  r.action.Actor.ID,
		TargetID: target.ID,
		SkillID:  r.skill.ID,
		Effect:   def.Kind,
		Landed:   landed,
		Success:  res.Success,
		Amount:   res.Amount,
		Critical: res.Critical,
		StatusID: def.StatusID,
		Defeated: target.IsDefeated(),
		Note:     note,
	}
	r.report.Events = append(r.report.Events, ev)
	r.p.logger.Debug("effect resolved",
		zap.String("actor", ev.ActorID),
		zap.String("target", ev.TargetID),
		zap.String("skill", ev.SkillID),
		zap.String("effect", ev.Effect.String()),
		zap.Bool("landed", ev.Landed),
		zap.Bool("success", ev.Success),
		zap.Int("amount", ev.Amount),
		zap.Bool("critical", ev.Critical),
		zap.String("note", ev.Note),
	)
}

func (r *run) abort(err error) {
	fields := []zap.Field{zap.Error(err)}
	if r.action != nil && r.action.Actor != nil {
		fields = append(fields, zap.String("actor", r.action.Actor.ID), zap.String("kind", r.action.Kind.String()))
	}
	r.p.logger.Warn("action aborted", fields...)
	r.end(OutcomeAborted, err)
}

func (r *run) end(outcome Outcome, err error) {
	if r.ended {
		return
	}
	r.ended = true
	r.report.Outcome = outcome
	r.report.Err = err
	if r.p.active == r {
		r.p.active = nil
	}
	rep := r.report
	r.p.deps.Director.Defer(func() {
		if r.p.deps.Reporter != nil {
			r.p.deps.Reporter.OnActionReport(rep)
		}
		if r.done != nil {
			r.done(rep)
		}
	})
}

func (p *Pipeline) machineFor(a *actor.Actor) *actorfsm.Machine {
	if p.deps.Machines == nil || a == nil {
		return nil
	}
	return p.deps.Machines.MachineFor(a)
}

// settle brings a's machine in line with its health after a mutation.
func (p *Pipeline) settle(a *actor.Actor) {
	if m := p.machineFor(a); m != nil {
		m.Settle()
	}
}

func targetID(a *actor.Actor) string {
	if a == nil {
		return ""
	}
	return a.ID
}

func dedupe(list []*actor.Actor) []*actor.Actor {
	seen := make(map[*actor.Actor]struct{}, len(list))
	out := make([]*actor.Actor, 0, len(list))
	for _, a := range list {
		if a == nil {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
