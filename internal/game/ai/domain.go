// Package ai decides actions for AI-controlled actors.
//
// The main strategy is a Hierarchical Task Network (HTN) planner: abstract
// tasks decompose into primitive operators via ordered methods whose
// preconditions are Lua hooks. Operators map to battle actions.
package ai

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RootTask is the task every plan starts from.
const RootTask = "behave"

// Operator actions.
const (
	ActionAttack = "attack"
	ActionDefend = "defend"
	ActionSkill  = "skill"
	ActionSkip   = "skip"
)

// Target tokens understood by WorldState.ResolveTarget.
const (
	TargetWeakestEnemy = "weakest_enemy"
	TargetNearestEnemy = "nearest_enemy"
	TargetSelf         = "self"
	TargetWeakestAlly  = "weakest_ally"
)

// Task is an abstract goal that can be decomposed by methods.
//
// Precondition: ID must be non-empty.
type Task struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// Method decomposes a task into an ordered list of subtasks or operator IDs.
//
// Precondition: TaskID, ID, and Subtasks must be non-empty.
// Precondition: Precondition is a Lua function name; empty means always applicable.
type Method struct {
	TaskID       string   `yaml:"task"`
	ID           string   `yaml:"id"`
	Precondition string   `yaml:"precondition"` // Lua function name; empty = always applicable
	Subtasks     []string `yaml:"subtasks"`
}

// Operator is a primitive action that maps directly to a battle action.
//
// Precondition: ID and Action must be non-empty; Skill is required iff Action is "skill".
type Operator struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"` // attack, defend, skill, skip
	Skill  string `yaml:"skill"`
	Target string `yaml:"target"` // a target token or a literal actor ID
}

// Domain holds the full HTN domain loaded from a YAML file.
//
// Invariant: all Task, Method, and Operator IDs are unique within their slice.
type Domain struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	Tasks       []*Task     `yaml:"tasks"`
	Methods     []*Method   `yaml:"methods"`
	Operators   []*Operator `yaml:"operators"`
}

// Validate checks all required fields and cross-field constraints.
//
// Postcondition: nil return guarantees a non-empty ID, a RootTask, unique IDs
// within tasks, methods, and operators, no ID shared by a task and an operator,
// known operator actions, and that every method references a known task and
// decomposes only into known tasks or operators.
func (d *Domain) Validate() error {
	if d.ID == "" {
		return errors.New("ai.Domain: ID must not be empty")
	}
	if len(d.Tasks) == 0 {
		return fmt.Errorf("ai.Domain %q: must have at least one task", d.ID)
	}

	tasks := make(map[string]bool, len(d.Tasks))
	for _, t := range d.Tasks {
		if t.ID == "" {
			return fmt.Errorf("ai.Domain %q: task has empty ID", d.ID)
		}
		if tasks[t.ID] {
			return fmt.Errorf("ai.Domain %q: duplicate task ID %q", d.ID, t.ID)
		}
		tasks[t.ID] = true
	}
	if !tasks[RootTask] {
		return fmt.Errorf("ai.Domain %q: missing root task %q", d.ID, RootTask)
	}

	ops := make(map[string]bool, len(d.Operators))
	for _, op := range d.Operators {
		if err := d.checkOperator(op); err != nil {
			return err
		}
		if ops[op.ID] {
			return fmt.Errorf("ai.Domain %q: duplicate operator ID %q", d.ID, op.ID)
		}
		if tasks[op.ID] {
			return fmt.Errorf("ai.Domain %q: %q is both a task and an operator", d.ID, op.ID)
		}
		ops[op.ID] = true
	}

	methods := make(map[string]bool, len(d.Methods))
	for _, m := range d.Methods {
		if m.TaskID == "" || m.ID == "" {
			return fmt.Errorf("ai.Domain %q: method missing TaskID or ID", d.ID)
		}
		if methods[m.ID] {
			return fmt.Errorf("ai.Domain %q: duplicate method ID %q", d.ID, m.ID)
		}
		methods[m.ID] = true
		if !tasks[m.TaskID] {
			return fmt.Errorf("ai.Domain %q method %q: TaskID %q references unknown task", d.ID, m.ID, m.TaskID)
		}
		if len(m.Subtasks) == 0 {
			return fmt.Errorf("ai.Domain %q method %q: subtasks must not be empty", d.ID, m.ID)
		}
		for _, sub := range m.Subtasks {
			if !tasks[sub] && !ops[sub] {
				return fmt.Errorf("ai.Domain %q method %q: subtask %q is neither a task nor an operator", d.ID, m.ID, sub)
			}
		}
	}
	return nil
}

func (d *Domain) checkOperator(op *Operator) error {
	if op.ID == "" || op.Action == "" {
		return fmt.Errorf("ai.Domain %q: operator missing ID or Action", d.ID)
	}
	switch op.Action {
	case ActionAttack, ActionDefend, ActionSkip:
	case ActionSkill:
		if op.Skill == "" {
			return fmt.Errorf("ai.Domain %q operator %q: skill action requires a skill ID", d.ID, op.ID)
		}
	default:
		return fmt.Errorf("ai.Domain %q operator %q: unknown action %q", d.ID, op.ID, op.Action)
	}
	return nil
}

// UnknownSkills returns the operator skill IDs for which known reports false,
// in operator order without duplicates.
func (d *Domain) UnknownSkills(known func(skillID string) bool) []string {
	var out []string
	seen := make(map[string]bool)
	for _, op := range d.Operators {
		if op.Action != ActionSkill || seen[op.Skill] {
			continue
		}
		seen[op.Skill] = true
		if !known(op.Skill) {
			out = append(out, op.Skill)
		}
	}
	return out
}

// OperatorByID returns the operator with the given ID, or false if not found.
func (d *Domain) OperatorByID(id string) (*Operator, bool) {
	for _, op := range d.Operators {
		if op.ID == id {
			return op, true
		}
	}
	return nil, false
}

// MethodsForTask returns all methods that decompose taskID, in declaration order.
func (d *Domain) MethodsForTask(taskID string) []*Method {
	var out []*Method
	for _, m := range d.Methods {
		if m.TaskID == taskID {
			out = append(out, m)
		}
	}
	return out
}

// yamlDomainFile wraps the YAML top-level key.
type yamlDomainFile struct {
	Domain *Domain `yaml:"domain"`
}

// LoadDomains reads all *.yaml files from dir and returns parsed Domains.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any YAML file fails to parse or validate.
// Postcondition: returns (nil, nil) if dir contains no .yaml files; callers should treat empty results as a configuration error if domains are required.
func LoadDomains(dir string) ([]*Domain, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ai.LoadDomains: reading %q: %w", dir, err)
	}
	var domains []*Domain
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: reading %s: %w", e.Name(), err)
		}
		var f yamlDomainFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: parsing %s: %w", e.Name(), err)
		}
		if f.Domain == nil {
			return nil, fmt.Errorf("ai.LoadDomains: %s missing top-level 'domain' key", e.Name())
		}
		if err := f.Domain.Validate(); err != nil {
			return nil, err
		}
		domains = append(domains, f.Domain)
	}
	return domains, nil
}
