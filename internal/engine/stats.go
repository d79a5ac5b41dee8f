package engine

import (
	"log/slog"

	"github.com/dustin/go-humanize"
)

// IterationStats aggregates what happened in one evolution iteration. A
// fresh value is created per iteration; callers accumulate across
// iterations via RunStats.
type IterationStats struct {
	Iteration         int
	Block             uint64
	TotalActions      int
	SuccessfulActions int
	ActionCounts      map[string]int // Per-action success counts
}

func newIterationStats(iteration int, block uint64) IterationStats {
	return IterationStats{
		Iteration:    iteration,
		Block:        block,
		ActionCounts: make(map[string]int),
	}
}

// RunStats accumulates iteration stats across a whole run.
type RunStats struct {
	Iterations        int
	TotalActions      int
	SuccessfulActions int
	ActionCounts      map[string]int
}

// NewRunStats creates an empty accumulator.
func NewRunStats() *RunStats {
	return &RunStats{ActionCounts: make(map[string]int)}
}

// Add folds one iteration into the run totals.
func (r *RunStats) Add(s IterationStats) {
	r.Iterations++
	r.TotalActions += s.TotalActions
	r.SuccessfulActions += s.SuccessfulActions
	for name, n := range s.ActionCounts {
		r.ActionCounts[name] += n
	}
}

// SuccessRate returns the fraction of attempted actions that succeeded.
func (r *RunStats) SuccessRate() float64 {
	if r.TotalActions == 0 {
		return 0
	}
	return float64(r.SuccessfulActions) / float64(r.TotalActions)
}

// LogSummary writes the end-of-run report.
func (r *RunStats) LogSummary() {
	slog.Info("run summary",
		"iterations", r.Iterations,
		"total_actions", humanize.Comma(int64(r.TotalActions)),
		"successful_actions", humanize.Comma(int64(r.SuccessfulActions)),
		"success_rate", r.SuccessRate(),
	)
	for name, n := range r.ActionCounts {
		slog.Info("action totals", "action", name, "count", humanize.Comma(int64(n)))
	}
}
