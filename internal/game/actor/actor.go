// Package actor models battle participants: identity, faction, live stat block,
// timed stat modifiers, and the status ledger.
package actor

import (
	"math"

	"github.com/cory-johannsen/skirmish/internal/game/status"
)

// Faction partitions actors into the two opposing sides of a battle.
type Faction int

const (
	FactionFriendly Faction = iota
	FactionHostile
)

// String returns "friendly" or "hostile".
func (f Faction) String() string {
	if f == FactionHostile {
		return "hostile"
	}
	return "friendly"
}

// Opposing returns the other faction.
func (f Faction) Opposing() Faction {
	if f == FactionHostile {
		return FactionFriendly
	}
	return FactionHostile
}

// MaxRank is the deepest formation rank. Ranks 0..1 form the front row, 2..3 the back row.
const MaxRank = 3

// Row is a formation row derived from rank.
type Row int

const (
	RowFront Row = iota
	RowBack
)

// String returns "front" or "back".
func (r Row) String() string {
	if r == RowBack {
		return "back"
	}
	return "front"
}

// RowOf maps a formation rank to its row.
func RowOf(rank int) Row {
	if rank >= 2 {
		return RowBack
	}
	return RowFront
}

// KnownSkill is a skill an actor has learned, with its proficiency rank (1-based).
type KnownSkill struct {
	SkillID string `yaml:"id"`
	Rank    int    `yaml:"rank"`
}

// Actor is one battle participant. Actors are never destroyed during battle;
// reaching zero health marks them defeated.
//
// Invariant: 0 <= Health <= MaxHealth() and 0 <= Mana <= MaxMana().
type Actor struct {
	ID      string
	Name    string
	Faction Faction
	Base    Stats
	Health  int
	Mana    int
	// Rank is the formation rank in [0, MaxRank].
	Rank   int
	Skills []KnownSkill
	// Resistances maps element name to a damage reduction percentage.
	Resistances map[string]float64
	// AIDomain names the HTN domain driving this actor when AI-controlled.
	AIDomain  string
	Modifiers []*Modifier
	Statuses  *status.Ledger
}

// New creates an actor at full health and mana with an empty status ledger.
//
// Postcondition: Health == MaxHealth(); Mana == MaxMana(); Rank is clamped into [0, MaxRank].
func New(id, name string, faction Faction, base Stats, rank int) *Actor {
	a := &Actor{
		ID:       id,
		Name:     name,
		Faction:  faction,
		Base:     base,
		Rank:     clampInt(rank, 0, MaxRank),
		Statuses: status.NewLedger(),
	}
	a.Health = a.MaxHealth()
	a.Mana = a.MaxMana()
	return a
}

// IsDefeated reports whether the actor has no health left.
func (a *Actor) IsDefeated() bool { return a.Health <= 0 }

// IsPlayerControlled reports whether turns for this actor wait on player input.
func (a *Actor) IsPlayerControlled() bool { return a.Faction == FactionFriendly }

// Row returns the formation row for the actor's current rank.
func (a *Actor) Row() Row { return RowOf(a.Rank) }

// Stat returns the effective value of st: base plus all active modifiers, floored at 0.
func (a *Actor) Stat(st StatType) float64 {
	if st == StatNone {
		return 0
	}
	v := a.Base.Get(st) + a.ModifierTotal(st)
	if v < 0 {
		return 0
	}
	return v
}

// MaxHealth returns the effective maximum health, never below 1.
func (a *Actor) MaxHealth() int {
	return max(1, int(math.Round(a.Stat(StatMaxHealth))))
}

// MaxMana returns the effective maximum mana.
func (a *Actor) MaxMana() int {
	return int(math.Round(a.Stat(StatMaxMana)))
}

// ApplyDamage reduces Health by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: Returns the health actually removed.
func (a *Actor) ApplyDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := a.Health
	a.Health = clampInt(a.Health-amount, 0, a.MaxHealth())
	return before - a.Health
}

// Heal raises Health by amount, capped at MaxHealth. Defeated actors cannot be healed.
//
// Postcondition: Returns the health actually restored.
func (a *Actor) Heal(amount int) int {
	if amount <= 0 || a.IsDefeated() {
		return 0
	}
	before := a.Health
	a.Health = clampInt(a.Health+amount, 0, a.MaxHealth())
	return a.Health - before
}

// Revive restores a defeated actor to amount health (at least 1, at most MaxHealth).
//
// Postcondition: Returns false and changes nothing when the actor is not defeated.
func (a *Actor) Revive(amount int) bool {
	if !a.IsDefeated() {
		return false
	}
	a.Health = clampInt(amount, 1, a.MaxHealth())
	return true
}

// SpendMana deducts cost if the actor can afford it.
//
// Postcondition: Returns false and leaves Mana unchanged when Mana < cost.
func (a *Actor) SpendMana(cost int) bool {
	if cost <= 0 {
		return true
	}
	if a.Mana < cost {
		return false
	}
	a.Mana -= cost
	return true
}

// RestoreMana raises Mana by amount, capped at MaxMana.
func (a *Actor) RestoreMana(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := a.Mana
	a.Mana = clampInt(a.Mana+amount, 0, a.MaxMana())
	return a.Mana - before
}

// MoveRank shifts the actor's formation rank by delta, clamped to [0, MaxRank].
//
// Postcondition: moved is false iff the rank did not change.
func (a *Actor) MoveRank(delta int) (from, to int, moved bool) {
	from = a.Rank
	a.Rank = clampInt(a.Rank+delta, 0, MaxRank)
	return from, a.Rank, a.Rank != from
}

// SkillRank returns the proficiency rank for skillID.
//
// Postcondition: ok is false when the actor does not know the skill.
func (a *Actor) SkillRank(skillID string) (rank int, ok bool) {
	for _, ks := range a.Skills {
		if ks.SkillID == skillID {
			return ks.Rank, true
		}
	}
	return 0, false
}

// Resistance returns the damage reduction percentage for element, clamped to [-100, 100].
func (a *Actor) Resistance(element string) float64 {
	if element == "" || a.Resistances == nil {
		return 0
	}
	return math.Max(-100, math.Min(100, a.Resistances[element]))
}

// HealthPercent returns current health as a percentage of MaxHealth.
func (a *Actor) HealthPercent() float64 {
	return float64(a.Health) / float64(a.MaxHealth()) * 100
}

func (a *Actor) clampPools() {
	a.Health = clampInt(a.Health, 0, a.MaxHealth())
	a.Mana = clampInt(a.Mana, 0, a.MaxMana())
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Living returns the members of actors that are not defeated, preserving order.
func Living(actors []*Actor) []*Actor {
	var out []*Actor
	for _, a := range actors {
		if a != nil && !a.IsDefeated() {
			out = append(out, a)
		}
	}
	return out
}

// AnyLiving reports whether at least one member of actors is not defeated.
func AnyLiving(actors []*Actor) bool {
	for _, a := range actors {
		if a != nil && !a.IsDefeated() {
			return true
		}
	}
	return false
}
