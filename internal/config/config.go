// Package config provides Viper-based configuration loading for the battle simulator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled turns on outcome recording. When false the remaining fields are not validated.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleConfig holds combat tuning and pacing.
type BattleConfig struct {
	// CritMultiplier scales critical damage and healing.
	CritMultiplier float64 `mapstructure:"crit_multiplier"`
	// MinDamage is the floor for any successful damage effect.
	MinDamage int `mapstructure:"min_damage"`
	// IntroDelay is the pause between spawning and the first turn.
	IntroDelay time.Duration `mapstructure:"intro_delay"`
	// ThinkDelay is the pause before an AI-controlled actor acts.
	ThinkDelay time.Duration `mapstructure:"think_delay"`
	// OutcomeDelay is how long Victory or Defeat is shown before the battle ends.
	OutcomeDelay time.Duration `mapstructure:"outcome_delay"`
	// AnimationTimeout bounds every wait on an animation completion.
	AnimationTimeout time.Duration `mapstructure:"animation_timeout"`
	// FrameInterval is the wall-clock frame length for real-time runs.
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	// MaxTransitionsPerFrame caps how many state changes one frame processes.
	MaxTransitionsPerFrame int `mapstructure:"max_transitions_per_frame"`
	// DefendMultiplier is the share of Defense granted by the Defend action.
	DefendMultiplier float64 `mapstructure:"defend_multiplier"`
}

// ContentConfig locates authored content.
type ContentConfig struct {
	SkillsDir      string `mapstructure:"skills_dir"`
	StatusesDir    string `mapstructure:"statuses_dir"`
	AIDir          string `mapstructure:"ai_dir"`
	AIScriptsDir   string `mapstructure:"ai_scripts_dir"`
	FormationsFile string `mapstructure:"formations_file"`
}

// SimulationConfig drives the headless battle runner.
type SimulationConfig struct {
	// Battles is how many battles run concurrently.
	Battles int `mapstructure:"battles"`
	// Formation names the formation every battle spawns.
	Formation string `mapstructure:"formation"`
	// Seed makes runs reproducible; 0 uses a cryptographic source.
	Seed uint64 `mapstructure:"seed"`
	// Animation selects the animation service: "instant", "simulated", or "timed".
	Animation string `mapstructure:"animation"`
	// MaxFrames aborts a simulated battle that has not ended after this many frames.
	MaxFrames int `mapstructure:"max_frames"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Battle     BattleConfig     `mapstructure:"battle"`
	Content    ContentConfig    `mapstructure:"content"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.CritMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("battle.crit_multiplier must be >= 1, got %v", b.CritMultiplier))
	}
	if b.MinDamage < 0 {
		errs = append(errs, fmt.Sprintf("battle.min_damage must be >= 0, got %d", b.MinDamage))
	}
	for name, d := range map[string]time.Duration{
		"intro_delay":   b.IntroDelay,
		"think_delay":   b.ThinkDelay,
		"outcome_delay": b.OutcomeDelay,
	} {
		if d < 0 {
			errs = append(errs, fmt.Sprintf("battle.%s must not be negative", name))
		}
	}
	if b.AnimationTimeout <= 0 {
		errs = append(errs, "battle.animation_timeout must be positive")
	}
	if b.FrameInterval <= 0 {
		errs = append(errs, "battle.frame_interval must be positive")
	}
	if b.MaxTransitionsPerFrame < 1 {
		errs = append(errs, fmt.Sprintf("battle.max_transitions_per_frame must be >= 1, got %d", b.MaxTransitionsPerFrame))
	}
	if b.DefendMultiplier < 0 {
		errs = append(errs, fmt.Sprintf("battle.defend_multiplier must be >= 0, got %v", b.DefendMultiplier))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.SkillsDir == "" {
		errs = append(errs, "content.skills_dir must not be empty")
	}
	if c.StatusesDir == "" {
		errs = append(errs, "content.statuses_dir must not be empty")
	}
	if c.FormationsFile == "" {
		errs = append(errs, "content.formations_file must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.Battles < 1 {
		errs = append(errs, fmt.Sprintf("simulation.battles must be >= 1, got %d", s.Battles))
	}
	validAnimations := map[string]bool{"instant": true, "simulated": true, "timed": true}
	if !validAnimations[s.Animation] {
		errs = append(errs, fmt.Sprintf("simulation.animation must be one of [instant, simulated, timed], got %q", s.Animation))
	}
	if s.MaxFrames < 1 {
		errs = append(errs, fmt.Sprintf("simulation.max_frames must be >= 1, got %d", s.MaxFrames))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.crit_multiplier", 1.5)
	v.SetDefault("battle.min_damage", 1)
	v.SetDefault("battle.intro_delay", "1s")
	v.SetDefault("battle.think_delay", "500ms")
	v.SetDefault("battle.outcome_delay", "2s")
	v.SetDefault("battle.animation_timeout", "5s")
	v.SetDefault("battle.frame_interval", "16ms")
	v.SetDefault("battle.max_transitions_per_frame", 32)
	v.SetDefault("battle.defend_multiplier", 0.5)

	v.SetDefault("content.skills_dir", "content/skills")
	v.SetDefault("content.statuses_dir", "content/statuses")
	v.SetDefault("content.ai_dir", "content/ai")
	v.SetDefault("content.ai_scripts_dir", "content/scripts/ai")
	v.SetDefault("content.formations_file", "content/formations.yaml")

	v.SetDefault("simulation.battles", 4)
	v.SetDefault("simulation.formation", "goblin_ambush")
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.animation", "simulated")
	v.SetDefault("simulation.max_frames", 100000)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
}
