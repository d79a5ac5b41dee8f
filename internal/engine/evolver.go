// Package engine provides the bootstrap builder and the steady-state
// evolution loop that drives the agent population against the ledger.
package engine

import (
	"log/slog"
	"math/rand"

	"github.com/talgya/trustflow/internal/actions"
	"github.com/talgya/trustflow/internal/agents"
	"github.com/talgya/trustflow/internal/collector"
	"github.com/talgya/trustflow/internal/ledger"
)

// Clock advances are split into sub-batches of this many blocks so a single
// oversized call never hits the clock abstraction.
const advanceBatchBlocks = 10

// Evolver runs the steady-state loop: advance time, then let every agent
// act at most once per iteration. Agents are processed strictly
// sequentially — the ledger is shared mutable state and the design assumes
// last-writer-wins sequential consistency, not isolation.
type Evolver struct {
	Registry  *agents.Registry
	Client    ledger.Client
	Clock     ledger.Clock
	Collector collector.Collector

	// Executor handles actions outside the built-in kinds. Optional.
	Executor *actions.Executor

	rng *rand.Rand
}

// NewEvolver creates an evolver. The generator drives the per-iteration
// agent shuffle and handler-level randomness (peer picking, amounts).
func NewEvolver(reg *agents.Registry, client ledger.Client, clock ledger.Clock, col collector.Collector, rng *rand.Rand) *Evolver {
	return &Evolver{
		Registry:  reg,
		Client:    client,
		Clock:     clock,
		Collector: col,
		rng:       rng,
	}
}

// AdvanceTime moves the clock forward in bounded sub-batches. A clock
// failure is fatal for the current iteration — time must never silently
// stand still.
func (e *Evolver) AdvanceTime(blocks, blockTimeSeconds int) error {
	for blocks > 0 {
		step := blocks
		if step > advanceBatchBlocks {
			step = advanceBatchBlocks
		}
		if err := e.Clock.Advance(step, blockTimeSeconds); err != nil {
			return &ledger.ClockError{Op: "advance", Err: err}
		}
		blocks -= step
	}
	return nil
}

// EvolveIteration runs one full pass over the population. The block number
// is snapshotted once so every agent sees the same scheduling time, and the
// population is shuffled to avoid systematic ordering bias.
func (e *Evolver) EvolveIteration(iteration int) (IterationStats, error) {
	block, err := e.Clock.CurrentBlock()
	if err != nil {
		return IterationStats{}, &ledger.ClockError{Op: "current block", Err: err}
	}
	stats := newIterationStats(iteration, block)

	population := make([]*agents.Agent, len(e.Registry.Agents()))
	copy(population, e.Registry.Agents())
	e.rng.Shuffle(len(population), func(i, j int) {
		population[i], population[j] = population[j], population[i]
	})

	for _, a := range population {
		intent := a.SelectAction(block)
		if intent == nil {
			continue
		}

		success := e.dispatch(a, intent)
		a.RecordAction(intent.Action, intent.Address, block, success)

		stats.TotalActions++
		if success {
			stats.SuccessfulActions++
			stats.ActionCounts[intent.Action]++
		}

		if err := e.Collector.RecordAction(collector.ActionRecord{
			Iteration: iteration,
			Block:     block,
			AgentID:   a.ID.String(),
			Address:   intent.Address,
			Action:    intent.Action,
			Success:   success,
		}); err != nil {
			slog.Warn("collector record action failed", "error", err)
		}
	}

	if err := e.Collector.RecordIteration(collector.IterationRecord{
		Iteration:         iteration,
		Block:             block,
		TotalActions:      stats.TotalActions,
		SuccessfulActions: stats.SuccessfulActions,
		ActionCounts:      stats.ActionCounts,
	}); err != nil {
		slog.Warn("collector record iteration failed", "error", err)
	}

	slog.Info("iteration report",
		"iteration", iteration,
		"block", block,
		"actions", stats.TotalActions,
		"successful", stats.SuccessfulActions,
	)
	return stats, nil
}
