// Package flow holds the code-level workflow definitions the coordinator
// executes. A definition is an ordered list of steps; each step routes its
// task to a candidate user (directly or via a process variable) or to a
// candidate group, and names the step to fall back to when the task is
// rejected. This is deliberately a minimal explicit state machine, not a
// general process-definition interpreter.
package flow

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownDefinition is returned when no definition is registered
	// under the requested key.
	ErrUnknownDefinition = errors.New("flow: unknown definition")
)

// Step is a single unit of work inside a definition.
type Step struct {
	// Name identifies the step and names the task it creates.
	Name string

	// CandidateVar names a process variable whose value becomes the task's
	// candidate user. Takes precedence over CandidateUser when set.
	CandidateVar string

	// CandidateUser routes the task to a fixed candidate user.
	CandidateUser string

	// CandidateGroup routes the task to a role.
	CandidateGroup string

	// OnReject names the step to reopen when this step's task is rejected.
	// Empty means rejection terminates the process.
	OnReject string
}

// Definition is an ordered sequence of steps executed per process instance.
type Definition struct {
	Key   string
	Steps []Step
}

// Validate checks the definition is executable: at least one step, unique
// step names, and reject targets that exist.
func (d Definition) Validate() error {
	if d.Key == "" {
		return errors.New("flow: definition key is empty")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("flow: definition %q has no steps", d.Key)
	}

	names := make(map[string]struct{}, len(d.Steps))
	for _, s := range d.Steps {
		if s.Name == "" {
			return fmt.Errorf("flow: definition %q has an unnamed step", d.Key)
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("flow: definition %q duplicates step %q", d.Key, s.Name)
		}
		names[s.Name] = struct{}{}
	}
	for _, s := range d.Steps {
		if s.OnReject == "" {
			continue
		}
		if _, ok := names[s.OnReject]; !ok {
			return fmt.Errorf("flow: definition %q step %q rejects to unknown step %q",
				d.Key, s.Name, s.OnReject)
		}
	}
	return nil
}

// First returns the initial step.
func (d Definition) First() Step { return d.Steps[0] }

// StepByName looks a step up by name.
func (d Definition) StepByName(name string) (Step, bool) {
	for _, s := range d.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// After returns the step following the named one, or ok=false when the named
// step is the last.
func (d Definition) After(name string) (Step, bool) {
	for i, s := range d.Steps {
		if s.Name == name && i+1 < len(d.Steps) {
			return d.Steps[i+1], true
		}
	}
	return Step{}, false
}

// CandidateUserFor resolves the candidate user of a step against the
// process variables.
func (s Step) CandidateUserFor(variables map[string]string) string {
	if s.CandidateVar != "" {
		return variables[s.CandidateVar]
	}
	return s.CandidateUser
}

// Decision resolves what follows a completed step. It is the pluggable
// branching policy: the default consults the definition, but deployments
// can substitute their own.
type Decision func(def Definition, current Step, approved bool) (next Step, ok bool)

// DefaultDecision advances to the next step on approval and reopens the
// step's OnReject target on rejection. ok=false means the process is done.
func DefaultDecision(def Definition, current Step, approved bool) (Step, bool) {
	if approved {
		return def.After(current.Name)
	}
	if current.OnReject == "" {
		return Step{}, false
	}
	return def.StepByName(current.OnReject)
}

// Registry holds the definitions known to the coordinator.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition, rejecting invalid ones and duplicate keys.
func (r *Registry) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Key]; exists {
		return fmt.Errorf("flow: definition %q already registered", def.Key)
	}
	r.defs[def.Key] = def
	return nil
}

// Lookup returns the definition registered under key.
func (r *Registry) Lookup(key string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownDefinition, key)
	}
	return def, nil
}

// Builtin returns the definitions shipped with the coordinator. In the
// approval flow the starter gets the first task (candidate user from the
// userName variable), a manager reviews it, and a rejection sends the work
// back to the starter.
func Builtin() []Definition {
	return []Definition{
		{
			Key: "approval",
			Steps: []Step{
				{Name: "prepareRequest", CandidateVar: "userName", OnReject: ""},
				{Name: "managerReview", CandidateGroup: "manager", OnReject: "prepareRequest"},
			},
		},
	}
}
