// Package agents provides the simulated actors: per-address behavioral
// state, the action-selection state machine, outcome recording, and the
// registry that owns the population.
package agents

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/trustflow/internal/ledger"
	"github.com/talgya/trustflow/internal/profile"
)

// ActionState tracks one action's execution history for one address.
type ActionState struct {
	LastExecutedBlock uint64
	ExecutionCount    int
}

// SequenceProgress tracks one sequence's position for one address.
//
// FailureStreak is the explicit consecutive-failure counter driving the
// exponential backoff. It is never reconstructed from block numbers;
// LastFailedBlock only anchors the "has the backoff elapsed" check.
type SequenceProgress struct {
	Active         bool
	StepIndex      int
	RepeatsDone    int // Successful repeats of the current step
	CompletedCount int // Full completions of the sequence

	FailureStreak   int
	LastFailedBlock uint64
	FailedStepIndex int
	failed          bool // A failure marker is set and not yet cleared
}

// Base backoff after a first sequence failure, in blocks. Each further
// consecutive failure doubles it.
const failureBackoffBlocks = 300

// backoffBlocks returns the wait imposed by the current failure streak.
func (p *SequenceProgress) backoffBlocks() uint64 {
	if p.FailureStreak == 0 {
		return 0
	}
	return failureBackoffBlocks << uint(p.FailureStreak-1)
}

// inBackoff reports whether the failure cooldown is still running.
func (p *SequenceProgress) inBackoff(currentBlock uint64) bool {
	return p.failed && currentBlock-p.LastFailedBlock < p.backoffBlocks()
}

// AddressState holds all behavioral state for one (agent, address) pair.
type AddressState struct {
	Actions   map[string]*ActionState
	Sequences map[string]*SequenceProgress
}

func newAddressState() *AddressState {
	return &AddressState{
		Actions:   make(map[string]*ActionState),
		Sequences: make(map[string]*SequenceProgress),
	}
}

func (s *AddressState) action(name string) *ActionState {
	as, ok := s.Actions[name]
	if !ok {
		as = &ActionState{}
		s.Actions[name] = as
	}
	return as
}

func (s *AddressState) sequence(name string) *SequenceProgress {
	sp, ok := s.Sequences[name]
	if !ok {
		sp = &SequenceProgress{}
		s.Sequences[name] = sp
	}
	return sp
}

// completions returns total sequence completions recorded for this address.
func (s *AddressState) completions() int {
	total := 0
	for _, sp := range s.Sequences {
		total += sp.CompletedCount
	}
	return total
}

// Intent is a scheduled action: what to attempt, from which address, with
// which parameters.
type Intent struct {
	Action  string
	Address ledger.Address
	Params  map[string]any
}

// Agent is one simulated economic actor. It owns its own state; nothing
// outside this package mutates it except through RecordAction. Agents hold
// no back-reference to the registry — address lookup lives there.
type Agent struct {
	ID      uuid.UUID
	Profile *profile.Profile

	// Addresses in registration order; Addresses[0] is the primary.
	Addresses []ledger.Address

	State map[ledger.Address]*AddressState

	rng *rand.Rand
}

// NewAgent creates an agent bound to a profile. The generator drives this
// agent's probability draws; passing a seeded one makes selection
// reproducible.
func NewAgent(id uuid.UUID, p *profile.Profile, rng *rand.Rand) *Agent {
	return &Agent{
		ID:      id,
		Profile: p,
		State:   make(map[ledger.Address]*AddressState),
		rng:     rng,
	}
}

// AddAddress attaches a new address to the agent and initializes its state.
func (a *Agent) AddAddress(addr ledger.Address) {
	a.Addresses = append(a.Addresses, addr)
	a.State[addr] = newAddressState()
}

// Primary returns the agent's first address, or "" before bootstrap.
func (a *Agent) Primary() ledger.Address {
	if len(a.Addresses) == 0 {
		return ""
	}
	return a.Addresses[0]
}

// addressState returns the state for addr, creating it for addresses
// registered outside AddAddress.
func (a *Agent) addressState(addr ledger.Address) *AddressState {
	st, ok := a.State[addr]
	if !ok {
		st = newAddressState()
		a.State[addr] = st
	}
	return st
}

func mergeParams(sender ledger.Address, value uint64, constraints map[string]any) map[string]any {
	params := map[string]any{"sender": sender, "value": value}
	for k, v := range constraints {
		params[k] = v
	}
	return params
}
