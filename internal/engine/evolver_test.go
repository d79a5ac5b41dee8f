package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/trustflow/internal/actions"
	"github.com/talgya/trustflow/internal/agents"
	"github.com/talgya/trustflow/internal/collector"
	"github.com/talgya/trustflow/internal/ledger"
	"github.com/talgya/trustflow/internal/profile"
)

// fakeClock records Advance calls and can be made to fail.
type fakeClock struct {
	block    uint64
	advances []int
	fail     bool
}

func (c *fakeClock) Advance(blocks, blockTimeSeconds int) error {
	if c.fail {
		return errors.New("rpc timeout")
	}
	c.advances = append(c.advances, blocks)
	c.block += uint64(blocks)
	return nil
}

func (c *fakeClock) CurrentBlock() (uint64, error) {
	if c.fail {
		return 0, errors.New("rpc timeout")
	}
	return c.block, nil
}

func (c *fakeClock) CurrentTimestamp() (uint64, error) {
	return c.block * 5, nil
}

// countingCollector counts what the evolver reports.
type countingCollector struct {
	agents     int
	actions    int
	iterations int
}

func (c *countingCollector) RecordAgent(*agents.Agent) error           { c.agents++; return nil }
func (c *countingCollector) RecordAction(collector.ActionRecord) error { c.actions++; return nil }
func (c *countingCollector) RecordIteration(collector.IterationRecord) error {
	c.iterations++
	return nil
}
func (c *countingCollector) Close() error { return nil }

func TestAdvanceTimeBatches(t *testing.T) {
	clock := &fakeClock{}
	e := NewEvolver(nil, nil, clock, collector.Noop{}, rand.New(rand.NewSource(1)))

	require.NoError(t, e.AdvanceTime(25, 5))
	assert.Equal(t, []int{10, 10, 5}, clock.advances)
}

func TestAdvanceTimeClockError(t *testing.T) {
	clock := &fakeClock{fail: true}
	e := NewEvolver(nil, nil, clock, collector.Noop{}, rand.New(rand.NewSource(1)))

	err := e.AdvanceTime(25, 5)
	var clockErr *ledger.ClockError
	require.ErrorAs(t, err, &clockErr)
}

func TestEvolveIterationClockError(t *testing.T) {
	clock := &fakeClock{fail: true}
	e := NewEvolver(nil, nil, clock, collector.Noop{}, rand.New(rand.NewSource(1)))

	_, err := e.EvolveIteration(0)
	var clockErr *ledger.ClockError
	require.ErrorAs(t, err, &clockErr)
}

func minterFixture(t *testing.T, population int) (*Evolver, *ledger.Memory, *agents.Registry, *countingCollector) {
	t.Helper()
	minter, err := profile.New(profile.Profile{
		Name: "minter",
		Actions: map[string]*profile.ActionSpec{
			"mint": {Probability: 1},
		},
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	chain := ledger.NewMemory(4)
	reg := agents.NewRegistry(map[string]*profile.Profile{"minter": minter}, rng)
	col := &countingCollector{}

	for i := 0; i < population; i++ {
		a, err := reg.CreateAgent("minter")
		require.NoError(t, err)
		require.NoError(t, chain.Register(a.Primary()))
	}
	return NewEvolver(reg, chain, chain, col, rng), chain, reg, col
}

func TestEvolveIterationMints(t *testing.T) {
	e, chain, _, col := minterFixture(t, 3)

	// One simulated hour of accrual makes every agent mintable.
	require.NoError(t, chain.Advance(720, 5))

	stats, err := e.EvolveIteration(0)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalActions)
	assert.Equal(t, 3, stats.SuccessfulActions)
	assert.Equal(t, 3, stats.ActionCounts["mint"])
	assert.Equal(t, uint64(720), stats.Block)
	assert.Equal(t, 3, col.actions)
	assert.Equal(t, 1, col.iterations)

	// Without further time the mint has nothing to issue and fails,
	// but the attempt is still counted.
	stats, err = e.EvolveIteration(1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalActions)
	assert.Zero(t, stats.SuccessfulActions)
	assert.Empty(t, stats.ActionCounts)
}

func TestEvolveIterationTransfers(t *testing.T) {
	sender, err := profile.New(profile.Profile{
		Name: "sender",
		Actions: map[string]*profile.ActionSpec{
			"transfer": {Probability: 1},
		},
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	chain := ledger.NewMemory(4)
	reg := agents.NewRegistry(map[string]*profile.Profile{"sender": sender}, rng)

	var population []*agents.Agent
	for i := 0; i < 2; i++ {
		a, err := reg.CreateAgent("sender")
		require.NoError(t, err)
		require.NoError(t, chain.Register(a.Primary()))
		population = append(population, a)
	}

	// Mutual trust so either direction of transfer is accepted.
	now, _ := chain.CurrentTimestamp()
	require.NoError(t, chain.CreateTrust(population[0].Primary(), population[1].Primary(), now+100000))
	require.NoError(t, chain.CreateTrust(population[1].Primary(), population[0].Primary(), now+100000))

	e := NewEvolver(reg, chain, chain, collector.Noop{}, rng)
	stats, err := e.EvolveIteration(0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalActions)
	assert.Equal(t, 2, stats.SuccessfulActions)

	// Value moved but none was created or destroyed.
	balA, _ := chain.Balance(population[0].Primary())
	balB, _ := chain.Balance(population[1].Primary())
	assert.Equal(t, uint64(200), balA+balB)
}

func TestEvolveIterationTrustGrowsGraph(t *testing.T) {
	truster, err := profile.New(profile.Profile{
		Name: "truster",
		Actions: map[string]*profile.ActionSpec{
			"create_trust": {Probability: 1},
		},
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	chain := ledger.NewMemory(4)
	reg := agents.NewRegistry(map[string]*profile.Profile{"truster": truster}, rng)

	var population []*agents.Agent
	for i := 0; i < 4; i++ {
		a, err := reg.CreateAgent("truster")
		require.NoError(t, err)
		require.NoError(t, chain.Register(a.Primary()))
		population = append(population, a)
	}

	e := NewEvolver(reg, chain, chain, collector.Noop{}, rng)
	stats, err := e.EvolveIteration(0)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalActions)
	assert.Equal(t, 4, stats.SuccessfulActions)
}

func TestEvolveIterationGenericExecutor(t *testing.T) {
	custom, err := profile.New(profile.Profile{
		Name: "custom",
		Actions: map[string]*profile.ActionSpec{
			"poke": {Probability: 1},
		},
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	chain := ledger.NewMemory(4)
	reg := agents.NewRegistry(map[string]*profile.Profile{"custom": custom}, rng)
	_, err = reg.CreateAgent("custom")
	require.NoError(t, err)

	actionReg := actions.NewRegistry()
	actionReg.Register(&pokeAction{})

	e := NewEvolver(reg, chain, chain, collector.Noop{}, rng)
	e.Executor = actions.NewExecutor(actionReg)

	stats, err := e.EvolveIteration(0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalActions)
	assert.Equal(t, 1, stats.SuccessfulActions)
	assert.Equal(t, 1, stats.ActionCounts["poke"])
}

// pokeAction is a trivial pluggable action for executor dispatch tests.
type pokeAction struct{}

func (pokeAction) Name() string                                { return "poke" }
func (pokeAction) Validate(*agents.Agent, map[string]any) bool { return true }
func (pokeAction) Execute(*agents.Agent, map[string]any) (map[string]any, error) {
	return nil, nil
}

func TestRunStatsAccumulation(t *testing.T) {
	run := NewRunStats()
	run.Add(IterationStats{TotalActions: 5, SuccessfulActions: 4, ActionCounts: map[string]int{"mint": 4}})
	run.Add(IterationStats{TotalActions: 3, SuccessfulActions: 1, ActionCounts: map[string]int{"mint": 1}})

	assert.Equal(t, 2, run.Iterations)
	assert.Equal(t, 8, run.TotalActions)
	assert.Equal(t, 5, run.SuccessfulActions)
	assert.Equal(t, 5, run.ActionCounts["mint"])
	assert.InDelta(t, 0.625, run.SuccessRate(), 1e-9)
}
