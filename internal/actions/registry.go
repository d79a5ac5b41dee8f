package actions

import (
	"errors"
	"sort"

	"github.com/talgya/trustflow/internal/agents"
)

// Registry holds pluggable actions by name.
type Registry struct {
	byName map[string]Action
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Action)}
}

// Register adds or replaces an action under its name.
func (r *Registry) Register(a Action) {
	r.byName[a.Name()] = a
}

// Get returns the action registered under name.
func (r *Registry) Get(name string) (Action, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// List returns all registered action names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Executor runs registered actions through the validate/execute contract.
type Executor struct {
	reg *Registry
}

// NewExecutor creates an executor over a registry.
func NewExecutor(reg *Registry) *Executor {
	return &Executor{reg: reg}
}

// Execute looks up, validates, and runs one action. Unknown names and
// validation refusals produce failed results, never panics.
func (x *Executor) Execute(name string, a *agents.Agent, params map[string]any) Result {
	action, ok := x.reg.Get(name)
	if !ok {
		return Result{Err: &UnknownActionError{Name: name}}
	}
	if !action.Validate(a, params) {
		return Result{Err: &ActionError{Name: name, Err: errors.New("validation rejected")}}
	}
	data, err := action.Execute(a, params)
	if err != nil {
		return Result{Err: &ActionError{Name: name, Err: err}}
	}
	return Result{Success: true, Data: data}
}

// Request pairs an action name with its target agent and params.
type Request struct {
	Name   string
	Agent  *agents.Agent
	Params map[string]any
}

// BatchExecute runs every request sequentially and collects all results;
// a failure never short-circuits the rest of the batch.
func (x *Executor) BatchExecute(reqs []Request) []Result {
	results := make([]Result, len(reqs))
	for i, req := range reqs {
		results[i] = x.Execute(req.Name, req.Agent, req.Params)
	}
	return results
}
