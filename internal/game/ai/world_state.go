package ai

import "github.com/cory-johannsen/skirmish/internal/scripting"

// CombatantState captures an actor's battle-relevant state at planning time.
type CombatantState struct {
	UID      string
	Name     string
	Faction  string // "friendly" or "hostile"
	HP       int
	MaxHP    int
	Mana     int
	MaxMana  int
	Rank     int
	Dead     bool
	Statuses []string
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP == 0.
func (c *CombatantState) HPPercent() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.HP) / float64(c.MaxHP) * 100
}

// WorldState is the snapshot passed to the HTN planner for one actor.
// It also serves as the scripting.View for precondition hooks.
//
// Invariant: Self must not be nil and must appear in Combatants.
type WorldState struct {
	Self       *CombatantState
	Combatants []*CombatantState
}

// Find returns the combatant with uid, or nil.
func (ws *WorldState) Find(uid string) *CombatantState {
	for _, c := range ws.Combatants {
		if c.UID == uid {
			return c
		}
	}
	return nil
}

// EnemiesOf returns all living combatants of the other faction from uid.
//
// Postcondition: returned slice contains no dead combatants and no same-faction combatants.
func (ws *WorldState) EnemiesOf(uid string) []*CombatantState {
	self := ws.Find(uid)
	if self == nil {
		return nil
	}
	var out []*CombatantState
	for _, c := range ws.Combatants {
		if !c.Dead && c.Faction != self.Faction {
			out = append(out, c)
		}
	}
	return out
}

// AlliesOf returns all living combatants of uid's faction, including uid itself.
func (ws *WorldState) AlliesOf(uid string) []*CombatantState {
	self := ws.Find(uid)
	if self == nil {
		return nil
	}
	var out []*CombatantState
	for _, c := range ws.Combatants {
		if !c.Dead && c.Faction == self.Faction {
			out = append(out, c)
		}
	}
	return out
}

// HasLivingEnemies returns true when at least one living enemy exists.
//
// Postcondition: equivalent to len(EnemiesOf(uid)) > 0.
func (ws *WorldState) HasLivingEnemies(uid string) bool {
	return len(ws.EnemiesOf(uid)) > 0
}

// NearestEnemy returns the living enemy with the lowest formation rank, or nil.
//
// Postcondition: ties broken by order in Combatants.
func (ws *WorldState) NearestEnemy(uid string) *CombatantState {
	var nearest *CombatantState
	for _, e := range ws.EnemiesOf(uid) {
		if nearest == nil || e.Rank < nearest.Rank {
			nearest = e
		}
	}
	return nearest
}

// WeakestEnemy returns the living enemy with the lowest HP percentage, or nil.
//
// Postcondition: nil if no living enemies exist; ties broken by order in Combatants.
func (ws *WorldState) WeakestEnemy(uid string) *CombatantState {
	return weakest(ws.EnemiesOf(uid))
}

// WeakestAlly returns the living ally (possibly uid itself) with the lowest HP percentage, or nil.
func (ws *WorldState) WeakestAlly(uid string) *CombatantState {
	return weakest(ws.AlliesOf(uid))
}

func weakest(list []*CombatantState) *CombatantState {
	if len(list) == 0 {
		return nil
	}
	w := list[0]
	for _, c := range list[1:] {
		if c.HPPercent() < w.HPPercent() {
			w = c
		}
	}
	return w
}

// ResolveTarget maps a target token to a combatant UID.
//
// Postcondition: known tokens resolve to a UID or ""; any other token is returned as-is.
func (ws *WorldState) ResolveTarget(token string) string {
	var c *CombatantState
	switch token {
	case TargetNearestEnemy:
		c = ws.NearestEnemy(ws.Self.UID)
	case TargetWeakestEnemy:
		c = ws.WeakestEnemy(ws.Self.UID)
	case TargetWeakestAlly:
		c = ws.WeakestAlly(ws.Self.UID)
	case TargetSelf:
		c = ws.Self
	default:
		return token
	}
	if c == nil {
		return ""
	}
	return c.UID
}

// Actor implements scripting.View.
func (ws *WorldState) Actor(uid string) (scripting.ActorInfo, bool) {
	c := ws.Find(uid)
	if c == nil {
		return scripting.ActorInfo{}, false
	}
	return c.info(), true
}

// Allies implements scripting.View.
func (ws *WorldState) Allies(uid string) []scripting.ActorInfo {
	return infos(ws.AlliesOf(uid))
}

// Enemies implements scripting.View.
func (ws *WorldState) Enemies(uid string) []scripting.ActorInfo {
	return infos(ws.EnemiesOf(uid))
}

func (c *CombatantState) info() scripting.ActorInfo {
	return scripting.ActorInfo{
		UID:      c.UID,
		Name:     c.Name,
		Faction:  c.Faction,
		HP:       c.HP,
		MaxHP:    c.MaxHP,
		Mana:     c.Mana,
		MaxMana:  c.MaxMana,
		Rank:     c.Rank,
		Dead:     c.Dead,
		Statuses: c.Statuses,
	}
}

func infos(list []*CombatantState) []scripting.ActorInfo {
	out := make([]scripting.ActorInfo, len(list))
	for i, c := range list {
		out[i] = c.info()
	}
	return out
}
