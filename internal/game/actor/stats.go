package actor

import (
	"fmt"
	"strings"
)

// StatType names one entry of an actor's stat block.
// The zero value (StatNone) means "no stat" and always reads as 0.
type StatType int

const (
	StatNone StatType = iota
	StatMaxHealth
	StatMaxMana
	StatAttack
	StatDefense
	StatMagic
	StatMagicResist
	StatSpeed
	StatCrit
	StatAccuracy
)

var statNames = map[StatType]string{
	StatNone:        "none",
	StatMaxHealth:   "max_health",
	StatMaxMana:     "max_mana",
	StatAttack:      "attack",
	StatDefense:     "defense",
	StatMagic:       "magic",
	StatMagicResist: "magic_resist",
	StatSpeed:       "speed",
	StatCrit:        "crit",
	StatAccuracy:    "accuracy",
}

// String returns the snake_case stat name used in content files.
func (s StatType) String() string {
	if n, ok := statNames[s]; ok {
		return n
	}
	return "unknown"
}

// IsPoolMax reports whether s caps a resource pool (health or mana).
// Modifiers on pool caps may be applied to a target in a death-pending frame.
func (s StatType) IsPoolMax() bool {
	return s == StatMaxHealth || s == StatMaxMana
}

// ParseStatType converts a content-file stat name into a StatType.
// The empty string parses as StatNone.
//
// Postcondition: Returns an error iff name is not a known stat name.
func ParseStatType(name string) (StatType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return StatNone, nil
	}
	for st, sn := range statNames {
		if sn == n {
			return st, nil
		}
	}
	return StatNone, fmt.Errorf("unknown stat %q", name)
}

// Stats is an actor's base stat block. CritChance is a percentage (0..100).
type Stats struct {
	MaxHealth   int     `yaml:"max_health"`
	MaxMana     int     `yaml:"max_mana"`
	Attack      int     `yaml:"attack"`
	Defense     int     `yaml:"defense"`
	Magic       int     `yaml:"magic"`
	MagicResist int     `yaml:"magic_resist"`
	Speed       int     `yaml:"speed"`
	CritChance  float64 `yaml:"crit"`
	Accuracy    int     `yaml:"accuracy"`
}

// Get returns the base value of stat st.
//
// Postcondition: Returns 0 for StatNone and unknown stats.
func (s Stats) Get(st StatType) float64 {
	switch st {
	case StatMaxHealth:
		return float64(s.MaxHealth)
	case StatMaxMana:
		return float64(s.MaxMana)
	case StatAttack:
		return float64(s.Attack)
	case StatDefense:
		return float64(s.Defense)
	case StatMagic:
		return float64(s.Magic)
	case StatMagicResist:
		return float64(s.MagicResist)
	case StatSpeed:
		return float64(s.Speed)
	case StatCrit:
		return s.CritChance
	case StatAccuracy:
		return float64(s.Accuracy)
	default:
		return 0
	}
}

// Validate checks the stat block invariants.
//
// Postcondition: Returns nil iff MaxHealth >= 1 and no stat is negative.
func (s Stats) Validate() error {
	if s.MaxHealth < 1 {
		return fmt.Errorf("max_health must be >= 1, got %d", s.MaxHealth)
	}
	for st := StatMaxMana; st <= StatAccuracy; st++ {
		if s.Get(st) < 0 {
			return fmt.Errorf("%s must not be negative", st)
		}
	}
	return nil
}
