// Action selection: resume active sequences first, then probabilistically
// start (or resume a failed) sequence, then fall back to weighted
// individual actions.

package agents

import (
	"github.com/talgya/trustflow/internal/ledger"
	"github.com/talgya/trustflow/internal/profile"
)

// SelectAction picks the agent's next action at the given block, or returns
// nil when nothing is currently schedulable. Candidates are walked in
// address registration order and sequence declaration order, so a seeded run
// replays identically.
func (a *Agent) SelectAction(currentBlock uint64) *Intent {
	if intent := a.resumeActiveSequence(currentBlock); intent != nil {
		return intent
	}
	if intent := a.maybeStartSequence(currentBlock); intent != nil {
		return intent
	}
	return a.selectIndividual(currentBlock)
}

// resumeActiveSequence advances the first actionable active sequence.
func (a *Agent) resumeActiveSequence(currentBlock uint64) *Intent {
	for _, addr := range a.Addresses {
		st := a.addressState(addr)
		for _, seq := range a.Profile.Sequences {
			prog := st.sequence(seq.Name)
			if !prog.Active {
				continue
			}
			if seq.MaxExecutions > 0 && prog.CompletedCount >= seq.MaxExecutions {
				continue
			}
			if prog.inBackoff(currentBlock) {
				continue
			}
			if intent := a.advanceSequence(seq, prog, st, addr, currentBlock); intent != nil {
				return intent
			}
		}
	}
	return nil
}

// maybeStartSequence draws once against the profile's sequence probability
// and, on success, activates the first startable (address, sequence) pair.
// A pair with a recorded failure resumes at its failed step.
func (a *Agent) maybeStartSequence(currentBlock uint64) *Intent {
	if len(a.Profile.Sequences) == 0 {
		return nil
	}
	if a.rng.Float64() >= a.Profile.SequenceProbability {
		return nil
	}

	for _, addr := range a.Addresses {
		st := a.addressState(addr)
		if a.Profile.MaxSequenceIterations > 0 && st.completions() >= a.Profile.MaxSequenceIterations {
			continue
		}
		for _, seq := range a.Profile.Sequences {
			prog := st.sequence(seq.Name)
			if prog.Active {
				continue
			}
			if seq.MaxExecutions > 0 && prog.CompletedCount >= seq.MaxExecutions {
				continue
			}
			if prog.inBackoff(currentBlock) {
				continue
			}

			prog.Active = true
			if prog.failed {
				prog.StepIndex = prog.FailedStepIndex
			} else {
				prog.StepIndex = 0
			}
			prog.RepeatsDone = 0
			return a.advanceSequence(seq, prog, st, addr, currentBlock)
		}
	}
	return nil
}

// advanceSequence resolves the current step of an active sequence into an
// intent. A step whose action is still cooling down yields nil (the
// sequence stays active and waits). Fully repeated steps advance the index;
// the walk is bounded by the step count so a malformed sequence cannot loop.
func (a *Agent) advanceSequence(seq *profile.Sequence, prog *SequenceProgress, st *AddressState, addr ledger.Address, currentBlock uint64) *Intent {
	for hops := 0; hops <= len(seq.Steps); hops++ {
		if prog.StepIndex >= len(seq.Steps) {
			prog.CompletedCount++
			prog.Active = false
			prog.StepIndex = 0
			prog.RepeatsDone = 0
			return nil
		}

		step := &seq.Steps[prog.StepIndex]
		as := st.action(step.Action)
		if as.ExecutionCount > 0 && currentBlock-as.LastExecutedBlock < step.Cooldown {
			return nil // Step is waiting out its cooldown.
		}

		if prog.RepeatsDone >= step.Repeat {
			prog.StepIndex++
			prog.RepeatsDone = 0
			continue
		}

		params := map[string]any{"sender": addr}
		for k, v := range step.Constraints {
			params[k] = v
		}
		return &Intent{Action: step.Action, Address: addr, Params: params}
	}
	return nil
}

// selectIndividual picks among eligible (action, address) pairs by weighted
// random choice, weight = the action's declared probability.
func (a *Agent) selectIndividual(currentBlock uint64) *Intent {
	type candidate struct {
		spec *profile.ActionSpec
		addr ledger.Address
	}
	var candidates []candidate
	var weights []float64

	for _, name := range a.Profile.ActionOrder {
		spec := a.Profile.Actions[name]
		if spec.SequenceOnly || spec.Probability <= 0 {
			continue
		}
		for _, addr := range a.Addresses {
			st := a.addressState(addr)
			as := st.action(name)
			if spec.MaxExecutions > 0 && as.ExecutionCount >= spec.MaxExecutions {
				continue
			}
			if as.ExecutionCount > 0 && currentBlock-as.LastExecutedBlock < spec.Cooldown {
				continue
			}
			candidates = append(candidates, candidate{spec, addr})
			weights = append(weights, spec.Probability)
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	pick := candidates[pickWeighted(a.rng, weights)]
	return &Intent{
		Action:  pick.spec.Name,
		Address: pick.addr,
		Params:  mergeParams(pick.addr, 0, pick.spec.Constraints),
	}
}
