package battle

import (
	"time"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// Settings holds the tuning and pacing values one battle runs with.
// DefendMultiplier only applies when the skill registry has no Defend of its own.
type Settings struct {
	CritMultiplier         float64
	MinDamage              int
	IntroDelay             time.Duration
	ThinkDelay             time.Duration
	OutcomeDelay           time.Duration
	AnimationTimeout       time.Duration
	FrameInterval          time.Duration
	MaxTransitionsPerFrame int
	DefendMultiplier       float64
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		CritMultiplier:         1.5,
		MinDamage:              1,
		IntroDelay:             time.Second,
		ThinkDelay:             500 * time.Millisecond,
		OutcomeDelay:           2 * time.Second,
		AnimationTimeout:       5 * time.Second,
		FrameInterval:          16 * time.Millisecond,
		MaxTransitionsPerFrame: 32,
		DefendMultiplier:       0.5,
	}
}

// SettingsFromConfig converts validated configuration into Settings.
func SettingsFromConfig(c config.BattleConfig) Settings {
	return Settings{
		CritMultiplier:         c.CritMultiplier,
		MinDamage:              c.MinDamage,
		IntroDelay:             c.IntroDelay,
		ThinkDelay:             c.ThinkDelay,
		OutcomeDelay:           c.OutcomeDelay,
		AnimationTimeout:       c.AnimationTimeout,
		FrameInterval:          c.FrameInterval,
		MaxTransitionsPerFrame: c.MaxTransitionsPerFrame,
		DefendMultiplier:       c.DefendMultiplier,
	}
}

func (s Settings) effect() effect.Settings {
	return effect.Settings{CritMultiplier: s.CritMultiplier, MinDamage: s.MinDamage}
}
