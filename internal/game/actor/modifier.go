package actor

// Modifier is a timed additive change to one stat.
//
// Invariant: Remaining > 0 while the modifier is attached to an actor.
type Modifier struct {
	Stat      StatType
	Delta     float64
	Remaining int
	Buff      bool
	Source    string
}

// AddModifier attaches m to the actor and re-clamps health and mana.
// A modifier with Remaining <= 0 would expire before it is ever observed, so it is ignored.
//
// Precondition: m must not be nil.
// Postcondition: m is attached iff m.Remaining > 0.
func (a *Actor) AddModifier(m *Modifier) bool {
	if m == nil || m.Remaining <= 0 || m.Stat == StatNone {
		return false
	}
	a.Modifiers = append(a.Modifiers, m)
	a.clampPools()
	return true
}

// TickModifiers decrements every modifier by one turn and detaches those reaching zero.
// A modifier added with Remaining N is detached on exactly the Nth call.
//
// Postcondition: Returns the detached modifiers in attachment order.
func (a *Actor) TickModifiers() []*Modifier {
	var expired []*Modifier
	kept := a.Modifiers[:0]
	for _, m := range a.Modifiers {
		m.Remaining--
		if m.Remaining <= 0 {
			expired = append(expired, m)
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(a.Modifiers); i++ {
		a.Modifiers[i] = nil
	}
	a.Modifiers = kept
	if len(expired) > 0 {
		a.clampPools()
	}
	return expired
}

// ModifierTotal returns the summed delta of every modifier on stat st.
func (a *Actor) ModifierTotal(st StatType) float64 {
	total := 0.0
	for _, m := range a.Modifiers {
		if m.Stat == st {
			total += m.Delta
		}
	}
	return total
}
