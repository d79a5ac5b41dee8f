// Package collector provides optional persistence of generated traffic for
// later analysis. The scheduler behaves identically with the no-op
// collector ("fast mode") and the SQLite one.
package collector

import (
	"github.com/talgya/trustflow/internal/agents"
	"github.com/talgya/trustflow/internal/ledger"
)

// ActionRecord is one executed action outcome.
type ActionRecord struct {
	Iteration int            `db:"iteration"`
	Block     uint64         `db:"block"`
	AgentID   string         `db:"agent_id"`
	Address   ledger.Address `db:"address"`
	Action    string         `db:"action"`
	Success   bool           `db:"success"`
}

// IterationRecord summarizes one evolution iteration.
type IterationRecord struct {
	Iteration         int
	Block             uint64
	TotalActions      int
	SuccessfulActions int
	ActionCounts      map[string]int
}

// Collector receives traffic as it is generated. Implementations must
// tolerate being called from the single scheduler goroutine only.
type Collector interface {
	RecordAgent(a *agents.Agent) error
	RecordAction(rec ActionRecord) error
	RecordIteration(rec IterationRecord) error
	Close() error
}

// Noop discards everything. Selected by fast mode.
type Noop struct{}

func (Noop) RecordAgent(*agents.Agent) error       { return nil }
func (Noop) RecordAction(ActionRecord) error       { return nil }
func (Noop) RecordIteration(IterationRecord) error { return nil }
func (Noop) Close() error                          { return nil }
