package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/animation"
	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/formation"
	"github.com/cory-johannsen/skirmish/internal/game/pipeline"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/game/status"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// content is everything loaded from disk that battles share read-only.
type content struct {
	skills     *skill.Registry
	statuses   *status.Registry
	formations *formation.Library
	domains    *ai.Registry
	scripts    *scripting.Manager
}

// loadContent reads skills, statuses, formations, AI domains, and AI scripts.
//
// Precondition: cfg must be validated.
// Postcondition: On success the caller owns content.scripts and must Close it.
func loadContent(cfg config.Config, logger *zap.Logger) (*content, error) {
	start := time.Now()

	skills := skill.NewRegistry(cfg.Battle.DefendMultiplier)
	if err := skill.LoadDirectory(cfg.Content.SkillsDir, skills); err != nil {
		return nil, fmt.Errorf("loading skills: %w", err)
	}
	statuses, err := status.LoadDirectory(cfg.Content.StatusesDir)
	if err != nil {
		return nil, fmt.Errorf("loading statuses: %w", err)
	}
	formations, err := formation.LoadFile(cfg.Content.FormationsFile, skills)
	if err != nil {
		return nil, fmt.Errorf("loading formations: %w", err)
	}

	scripts := scripting.NewManager(dice.NewLoggedRoller(dice.NewCryptoSource(), logger.Named("dice")), logger.Named("scripting"))
	if cfg.Content.AIScriptsDir != "" {
		if err := scripts.LoadGlobal(cfg.Content.AIScriptsDir, 0); err != nil {
			scripts.Close()
			return nil, fmt.Errorf("loading AI scripts: %w", err)
		}
	}
	domains := ai.NewRegistry()
	if cfg.Content.AIDir != "" {
		domains, err = ai.LoadRegistry(cfg.Content.AIDir, scripts)
		if err != nil {
			scripts.Close()
			return nil, fmt.Errorf("loading AI domains: %w", err)
		}
	}
	known := func(id string) bool {
		_, err := skills.Get(id)
		return err == nil
	}
	for _, id := range domains.IDs() {
		p, _ := domains.PlannerFor(id)
		if missing := p.Domain().UnknownSkills(known); len(missing) > 0 {
			scripts.Close()
			return nil, fmt.Errorf("AI domain %q uses unknown skills %v", id, missing)
		}
	}

	logger.Info("content loaded",
		zap.Int("skills", skills.Len()),
		zap.Int("statuses", statuses.Len()),
		zap.Strings("formations", formations.IDs()),
		zap.Strings("ai_domains", domains.IDs()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &content{
		skills:     skills,
		statuses:   statuses,
		formations: formations,
		domains:    domains,
		scripts:    scripts,
	}, nil
}

// simulator runs batches of independent battles headlessly.
type simulator struct {
	cfg     config.Config
	content *content
	engine  *battle.Engine
	outcome battle.OutcomeHandler
	logger  *zap.Logger
}

// newSimulator creates a simulator. outcome may be nil.
func newSimulator(cfg config.Config, c *content, outcome battle.OutcomeHandler, logger *zap.Logger) *simulator {
	return &simulator{
		cfg:     cfg,
		content: c,
		engine:  battle.NewEngine(),
		outcome: outcome,
		logger:  logger,
	}
}

// runBatch runs cfg.Simulation.Battles battles concurrently, one goroutine each.
//
// Postcondition: On success results[i] is the result of battle i. The first
// failing battle cancels the rest.
func (s *simulator) runBatch(ctx context.Context) ([]*battle.Result, error) {
	n := s.cfg.Simulation.Battles
	results := make([]*battle.Result, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			res, err := s.runOne(gctx, i)
			if err != nil {
				return fmt.Errorf("battle %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *simulator) runOne(ctx context.Context, index int) (*battle.Result, error) {
	provider, err := s.content.formations.Provider(s.cfg.Simulation.Formation)
	if err != nil {
		return nil, err
	}
	var source dice.Source
	if s.cfg.Simulation.Seed != 0 {
		source = dice.NewSeededSource(s.cfg.Simulation.Seed + uint64(index))
	}
	service, stop := s.animationService()
	defer stop()

	b, err := battle.New(battle.Options{
		Settings:   battle.SettingsFromConfig(s.cfg.Battle),
		Formations: provider,
		Skills:     s.content.skills,
		Statuses:   s.content.statuses,
		Source:     source,
		Animation:  service,
		Enemy:      ai.NewHTNStrategy(s.content.domains, s.content.skills, s.logger.Named("ai")),
		Autopilot:  ai.NewAutoPilot(s.content.skills),
		Outcome:    s.outcome,
		Reporter:   actionLogger{logger: s.logger.Named("combat")},
		Logger:     s.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := s.engine.Add(b); err != nil {
		return nil, err
	}
	defer s.engine.Remove(b.ID())

	if s.cfg.Simulation.Animation == "timed" {
		err = b.Run(ctx)
	} else {
		err = b.RunSimulated(ctx, s.cfg.Simulation.MaxFrames)
	}
	if err != nil {
		return nil, err
	}
	return b.Result(), nil
}

// animationService builds the configured animation service and its release func.
func (s *simulator) animationService() (animation.Service, func()) {
	switch s.cfg.Simulation.Animation {
	case "instant":
		return animation.NewInstant(), func() {}
	case "timed":
		t := animation.NewTimed(animation.DefaultDurations())
		return t, t.Stop
	default:
		return animation.NewSimulated(animation.DefaultDurations()), func() {}
	}
}

// actionLogger writes one debug line per resolved action.
type actionLogger struct {
	logger *zap.Logger
}

// OnActionReport implements pipeline.Reporter.
func (l actionLogger) OnActionReport(r pipeline.Report) {
	fields := []zap.Field{
		zap.Stringer("outcome", r.Outcome),
		zap.Int("events", len(r.Events)),
	}
	if a := r.Action; a != nil {
		fields = append(fields, zap.Stringer("kind", a.Kind))
		if a.Actor != nil {
			fields = append(fields, zap.String("actor", a.Actor.ID))
		}
		if a.Skill != nil {
			fields = append(fields, zap.String("skill", a.Skill.ID))
		}
	}
	if r.Err != nil {
		fields = append(fields, zap.Error(r.Err))
	}
	l.logger.Debug("action report", fields...)
}

// summary tallies a batch of results.
type summary struct {
	Victories int
	Defeats   int
	Turns     int
}

func summarize(results []*battle.Result) summary {
	var s summary
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Outcome == battle.OutcomeVictory {
			s.Victories++
		} else {
			s.Defeats++
		}
		s.Turns += r.Turns
	}
	return s
}
