package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/trustflow/internal/agents"
	"github.com/talgya/trustflow/internal/collector"
	"github.com/talgya/trustflow/internal/ledger"
	"github.com/talgya/trustflow/internal/profile"
)

func buildProfiles(t *testing.T, names ...string) map[string]*profile.Profile {
	t.Helper()
	profiles := make(map[string]*profile.Profile, len(names))
	for _, name := range names {
		p, err := profile.New(profile.Profile{
			Name: name,
			Actions: map[string]*profile.ActionSpec{
				"mint": {Probability: 1},
			},
		})
		require.NoError(t, err)
		profiles[name] = p
	}
	return profiles
}

func TestDistributeCountsExact(t *testing.T) {
	counts, err := DistributeCounts(97, map[string]float64{"a": 1, "b": 1, "c": 1})
	require.NoError(t, err)

	sum := 0
	for _, n := range counts {
		sum += n
	}
	assert.Equal(t, 97, sum)
	assert.Equal(t, 32, counts["a"])
	assert.Equal(t, 32, counts["b"])
	assert.Equal(t, 33, counts["c"], "last profile in sorted order absorbs the remainder")
}

func TestDistributeCountsWeighted(t *testing.T) {
	counts, err := DistributeCounts(100, map[string]float64{"x": 3, "y": 1})
	require.NoError(t, err)
	assert.Equal(t, 75, counts["x"])
	assert.Equal(t, 25, counts["y"])
}

func TestDistributeCountsMissingDistribution(t *testing.T) {
	_, err := DistributeCounts(10, nil)
	var cfgErr *profile.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestDistributeCountsZeroWeights(t *testing.T) {
	_, err := DistributeCounts(10, map[string]float64{"a": 0})
	var cfgErr *profile.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func newBuildFixture(t *testing.T) (*Builder, *ledger.Memory, *agents.Registry) {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	chain := ledger.NewMemory(2)
	reg := agents.NewRegistry(buildProfiles(t, "a", "b", "c"), rng)
	return NewBuilder(reg, chain, chain, collector.Noop{}, rng), chain, reg
}

func TestBuildSucceedsCleanly(t *testing.T) {
	b, chain, reg := newBuildFixture(t)

	require.NoError(t, b.BuildInitialPopulation(30, map[string]float64{"a": 1, "b": 1, "c": 1}))
	assert.Equal(t, 30, reg.Len())

	for _, a := range reg.Agents() {
		registered, err := chain.IsRegistered(a.Primary())
		require.NoError(t, err)
		assert.True(t, registered)
	}
}

func TestBuildAbortsAboveRegistrationThreshold(t *testing.T) {
	b, chain, _ := newBuildFixture(t)

	// Every 4th registration fails: a steady 25% failure rate.
	calls := 0
	chain.FailOp = func(op string) bool {
		if op != "register" {
			return false
		}
		calls++
		return calls%4 == 0
	}

	err := b.BuildInitialPopulation(100, map[string]float64{"a": 1, "b": 1, "c": 1})
	var thresholdErr *ThresholdError
	require.ErrorAs(t, err, &thresholdErr)
	assert.Equal(t, "registration", thresholdErr.Stage)
}

func TestBuildToleratesModerateRegistrationFailures(t *testing.T) {
	b, chain, reg := newBuildFixture(t)

	// A 10% failure rate stays under the 20% threshold.
	calls := 0
	chain.FailOp = func(op string) bool {
		if op != "register" {
			return false
		}
		calls++
		return calls%10 == 0
	}

	require.NoError(t, b.BuildInitialPopulation(100, map[string]float64{"a": 1, "b": 1, "c": 1}))
	assert.Equal(t, 100, reg.Len())
}

func TestBuildAbortsAboveTrustThreshold(t *testing.T) {
	b, chain, _ := newBuildFixture(t)

	chain.FailOp = func(op string) bool { return op == "trust" }

	err := b.BuildInitialPopulation(30, map[string]float64{"a": 1, "b": 1, "c": 1})
	var thresholdErr *ThresholdError
	require.ErrorAs(t, err, &thresholdErr)
	assert.Equal(t, "trust_seeding", thresholdErr.Stage)
}

func TestBuildAbortsOnShortfall(t *testing.T) {
	b, _, _ := newBuildFixture(t)

	// An unknown profile in the distribution makes agent creation fail,
	// which is fatal before any registration is attempted.
	err := b.BuildInitialPopulation(10, map[string]float64{"a": 1, "ghost": 1})
	require.Error(t, err)
}

func TestBuildTopsUpAddresses(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	chain := ledger.NewMemory(2)

	multi, err := profile.New(profile.Profile{
		Name:               "multi",
		TargetAccountCount: 3,
		Actions: map[string]*profile.ActionSpec{
			"mint": {Probability: 1},
		},
	})
	require.NoError(t, err)
	reg := agents.NewRegistry(map[string]*profile.Profile{"multi": multi}, rng)
	b := NewBuilder(reg, chain, chain, collector.Noop{}, rng)

	require.NoError(t, b.BuildInitialPopulation(5, map[string]float64{"multi": 1}))
	for _, a := range reg.Agents() {
		assert.Len(t, a.Addresses, 3)
	}
}
