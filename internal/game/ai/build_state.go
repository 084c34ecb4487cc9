package ai

import "github.com/cory-johannsen/skirmish/internal/game/actor"

// BuildWorldState constructs a WorldState snapshot for self from both rosters.
//
// Precondition: self must not be nil.
// Postcondition: ws.Self.UID == self.ID; every non-nil actor in allies and enemies is represented once.
func BuildWorldState(self *actor.Actor, allies, enemies []*actor.Actor) *WorldState {
	ws := &WorldState{}
	seen := make(map[*actor.Actor]bool)
	add := func(a *actor.Actor) {
		if a == nil || seen[a] {
			return
		}
		seen[a] = true
		c := snapshot(a)
		if a == self {
			ws.Self = c
		}
		ws.Combatants = append(ws.Combatants, c)
	}
	add(self)
	for _, a := range allies {
		add(a)
	}
	for _, a := range enemies {
		add(a)
	}
	return ws
}

func snapshot(a *actor.Actor) *CombatantState {
	c := &CombatantState{
		UID:     a.ID,
		Name:    a.Name,
		Faction: a.Faction.String(),
		HP:      a.Health,
		MaxHP:   a.MaxHealth(),
		Mana:    a.Mana,
		MaxMana: a.MaxMana(),
		Rank:    a.Rank,
		Dead:    a.IsDefeated(),
	}
	if a.Statuses != nil {
		c.Statuses = a.Statuses.IDs()
	}
	return c
}
