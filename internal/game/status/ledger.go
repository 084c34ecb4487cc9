package status

import "fmt"

// Application is a request to put a status on an actor.
// Duration is in owner turns; a negative Duration never expires.
type Application struct {
	Def      *Definition
	CasterID string
	Element  string
	Potency  int
	Duration int
}

// Instance tracks one applied status on its owner.
type Instance struct {
	Def       *Definition
	CasterID  string
	Element   string
	Potency   int
	Remaining int // -1 = never expires
	Stacks    int
}

// TickReport summarises one owner-turn tick of a Ledger.
type TickReport struct {
	Damage   int
	Healing  int
	SkipTurn bool
	Expired  []string
}

// Ledger is the ordered set of statuses active on one actor.
// It is not safe for concurrent use; the battle thread owns it.
type Ledger struct {
	instances []*Instance
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Apply adds a status or updates the existing instance with the same definition ID.
// Stackable re-application adds one stack (capped at MaxStacks) and resets the
// duration to app.Duration. Non-stackable re-application refreshes duration and potency.
//
// Precondition: app.Def must not be nil.
// Postcondition: Has(app.Def.ID) is true; returns the affected instance.
func (l *Ledger) Apply(app Application) (*Instance, error) {
	if app.Def == nil {
		return nil, fmt.Errorf("status.Ledger.Apply: definition must not be nil")
	}
	if app.Duration == 0 {
		return nil, fmt.Errorf("status.Ledger.Apply: status %q has zero duration", app.Def.ID)
	}
	if existing := l.find(app.Def.ID); existing != nil {
		if app.Def.Stackable {
			existing.Stacks = min(existing.Stacks+1, app.Def.MaxStacks)
		} else {
			existing.Potency = app.Potency
		}
		existing.Remaining = app.Duration
		existing.CasterID = app.CasterID
		existing.Element = app.Element
		return existing, nil
	}
	inst := &Instance{
		Def:       app.Def,
		CasterID:  app.CasterID,
		Element:   app.Element,
		Potency:   app.Potency,
		Remaining: app.Duration,
		Stacks:    1,
	}
	l.instances = append(l.instances, inst)
	return inst, nil
}

// Remove deletes the status with id.
//
// Postcondition: Has(id) is false; returns whether anything was removed.
func (l *Ledger) Remove(id string) bool {
	for i, inst := range l.instances {
		if inst.Def.ID == id {
			l.instances = append(l.instances[:i], l.instances[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveHarmful deletes every harmful status and returns their IDs in ledger order.
func (l *Ledger) RemoveHarmful() []string {
	var removed []string
	kept := l.instances[:0]
	for _, inst := range l.instances {
		if inst.Def.Harmful {
			removed = append(removed, inst.Def.ID)
			continue
		}
		kept = append(kept, inst)
	}
	l.instances = kept
	return removed
}

// Tick runs one owner-turn: damage/heal-over-time statuses deliver potency * stacks,
// skip-turn statuses flag the turn, and every finite duration is decremented.
// An instance applied with duration N expires on exactly the Nth tick.
//
// Postcondition: For every id in report.Expired, Has(id) is false.
func (l *Ledger) Tick() TickReport {
	var report TickReport
	kept := l.instances[:0]
	for _, inst := range l.instances {
		switch inst.Def.Kind {
		case KindDamageOverTime:
			report.Damage += inst.Potency * inst.Stacks
		case KindHealOverTime:
			report.Healing += inst.Potency * inst.Stacks
		}
		if inst.Def.SkipTurn {
			report.SkipTurn = true
		}
		if inst.Remaining > 0 {
			inst.Remaining--
			if inst.Remaining == 0 {
				report.Expired = append(report.Expired, inst.Def.ID)
				continue
			}
		}
		kept = append(kept, inst)
	}
	l.instances = kept
	return report
}

// Has reports whether the status with id is active.
func (l *Ledger) Has(id string) bool { return l.find(id) != nil }

// Get returns the active instance for id, or nil.
func (l *Ledger) Get(id string) *Instance { return l.find(id) }

// Stacks returns the stack count for id, or 0 if not present.
func (l *Ledger) Stacks(id string) int {
	if inst := l.find(id); inst != nil {
		return inst.Stacks
	}
	return 0
}

// All returns a copy of the active instances in application order.
// The instances themselves are shared; callers must not modify them.
func (l *Ledger) All() []*Instance {
	out := make([]*Instance, len(l.instances))
	copy(out, l.instances)
	return out
}

// Len returns the number of active statuses.
func (l *Ledger) Len() int { return len(l.instances) }

// IDs returns the active status IDs in application order.
func (l *Ledger) IDs() []string {
	ids := make([]string, 0, len(l.instances))
	for _, inst := range l.instances {
		ids = append(ids, inst.Def.ID)
	}
	return ids
}

func (l *Ledger) find(id string) *Instance {
	for _, inst := range l.instances {
		if inst.Def.ID == id {
			return inst
		}
	}
	return nil
}
