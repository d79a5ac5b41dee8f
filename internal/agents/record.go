package agents

import "github.com/talgya/trustflow/internal/ledger"

// RecordAction records the result of an executed action for one address.
//
// Failure deactivates every active sequence at that address and stamps a
// failure marker so the sequence can later resume at the failed step after
// its backoff. Individual-action counters are deliberately left untouched on
// failure: the action stays retryable as soon as its normal cooldown allows.
//
// Success updates the action's cooldown/execution counters and immediately
// advances any active sequence whose current step matches, including
// completing the sequence, rather than waiting for the next scheduling call.
func (a *Agent) RecordAction(action string, addr ledger.Address, block uint64, success bool) {
	st, ok := a.State[addr]
	if !ok {
		return
	}

	if !success {
		for _, seq := range a.Profile.Sequences {
			prog := st.sequence(seq.Name)
			if !prog.Active {
				continue
			}
			prog.Active = false
			prog.LastFailedBlock = block
			prog.FailedStepIndex = prog.StepIndex
			prog.failed = true
			prog.FailureStreak++
		}
		return
	}

	as := st.action(action)
	as.LastExecutedBlock = block
	as.ExecutionCount++

	for _, seq := range a.Profile.Sequences {
		prog := st.sequence(seq.Name)
		if !prog.Active || prog.StepIndex >= len(seq.Steps) {
			continue
		}
		step := &seq.Steps[prog.StepIndex]
		if step.Action != action {
			continue
		}

		prog.RepeatsDone++
		prog.FailureStreak = 0
		prog.LastFailedBlock = 0
		prog.FailedStepIndex = 0
		prog.failed = false

		if prog.RepeatsDone >= step.Repeat {
			prog.StepIndex++
			prog.RepeatsDone = 0
			if prog.StepIndex >= len(seq.Steps) {
				prog.CompletedCount++
				prog.Active = false
				prog.StepIndex = 0
			}
		}
	}
}
