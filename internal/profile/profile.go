// Package profile provides the declarative behavior catalog shared by a
// class of agents: individual probabilistic actions and scripted multi-step
// sequences, with cooldowns, execution caps, and constraints. Profiles are
// validated once at load time and immutable afterwards.
package profile

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/talgya/trustflow/internal/ledger"
)

// ActionSpec describes one individual action an agent may attempt.
type ActionSpec struct {
	Name        string  `validate:"required"`
	Probability float64 `validate:"min=0,max=1"` // Selection weight in [0,1]
	Cooldown    uint64  // Minimum blocks between executions per address

	// MaxExecutions caps how often one address may run this action.
	// Zero means unlimited.
	MaxExecutions int `validate:"min=0"`

	// SequenceOnly marks actions synthesized from sequence steps that were
	// never declared individually. They are excluded from standalone
	// selection — only their sequences schedule them.
	SequenceOnly bool

	// Constraints are passed through to the action handler as extra params.
	Constraints map[string]any
}

// SequenceStep is one ordered step of a Sequence.
type SequenceStep struct {
	Action      string `validate:"required"`
	Repeat      int    `validate:"min=1"` // Consecutive successful executions required
	Cooldown    uint64 // Minimum blocks between executions of this step's action
	Constraints map[string]any
}

// Sequence is an ordered, repeatable script of actions.
type Sequence struct {
	Name  string         `validate:"required"`
	Steps []SequenceStep `validate:"min=1,dive"`

	// MaxExecutions caps full completions per address. Zero means unlimited.
	MaxExecutions int `validate:"min=0"`
}

// Profile is the behavior template for one agent population type.
type Profile struct {
	Name        string `validate:"required"`
	Description string

	// TargetAccountCount is how many addresses each agent of this type owns.
	TargetAccountCount int `validate:"min=1"`

	// SequenceProbability is the per-scheduling-call chance of starting a
	// new sequence instead of falling through to individual actions.
	SequenceProbability float64 `validate:"min=0,max=1"`

	// MaxSequenceIterations caps total sequence completions per address
	// across all sequences. Zero means unlimited.
	MaxSequenceIterations int `validate:"min=0"`

	Actions   map[string]*ActionSpec `validate:"dive,required"`
	Sequences []*Sequence            `validate:"dive,required"`

	// ActionOrder fixes the iteration order over Actions (sorted names).
	// All scheduling walks this slice, never the map, so runs with the
	// same seed replay identically.
	ActionOrder []string

	// PresetAddresses are consumed before fresh addresses are generated.
	PresetAddresses []ledger.Address
}

// ConfigError reports an invalid or incomplete profile or run configuration.
// Configuration problems are fatal before any simulation starts.
type ConfigError struct {
	Profile string
	Field   string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Profile == "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("profile %q: %s: %s", e.Profile, e.Field, e.Reason)
}

var validate = validator.New()

// New finalizes a profile: applies defaults, synthesizes implicit action
// specs for sequence steps, freezes the action iteration order, and
// validates ranges. The returned profile must not be mutated.
func New(p Profile) (*Profile, error) {
	if p.Name == "" {
		return nil, &ConfigError{Field: "name", Reason: "missing"}
	}
	if p.TargetAccountCount == 0 {
		p.TargetAccountCount = 1
	}
	if p.Actions == nil {
		p.Actions = make(map[string]*ActionSpec)
	}
	for name, spec := range p.Actions {
		if spec == nil {
			return nil, &ConfigError{Profile: p.Name, Field: "actions." + name, Reason: "empty spec"}
		}
		spec.Name = name
	}

	// Every action referenced by a sequence step must exist. Steps that
	// name an undeclared action get an implicit spec; the sequence's own
	// step-level cooldown governs it, so the spec carries none.
	for _, seq := range p.Sequences {
		if seq == nil {
			return nil, &ConfigError{Profile: p.Name, Field: "sequences", Reason: "empty sequence"}
		}
		for i := range seq.Steps {
			step := &seq.Steps[i]
			if step.Repeat == 0 {
				step.Repeat = 1
			}
			if _, ok := p.Actions[step.Action]; !ok {
				p.Actions[step.Action] = &ActionSpec{
					Name:         step.Action,
					Probability:  1.0,
					Cooldown:     0,
					SequenceOnly: true,
				}
			}
		}
	}

	p.ActionOrder = make([]string, 0, len(p.Actions))
	for name := range p.Actions {
		p.ActionOrder = append(p.ActionOrder, name)
	}
	sort.Strings(p.ActionOrder)

	if err := validate.Struct(&p); err != nil {
		return nil, &ConfigError{Profile: p.Name, Field: "profile", Reason: err.Error()}
	}
	return &p, nil
}

// Action returns the spec for a named action, or nil if unknown.
func (p *Profile) Action(name string) *ActionSpec {
	return p.Actions[name]
}
