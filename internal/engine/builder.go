package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/talgya/trustflow/internal/agents"
	"github.com/talgya/trustflow/internal/collector"
	"github.com/talgya/trustflow/internal/ledger"
	"github.com/talgya/trustflow/internal/profile"
)

// Bootstrap failure thresholds. Crossing either one makes the whole build
// fail rather than start a run on a broken network.
const (
	registrationFailureLimit = 0.20
	trustFailureLimit        = 0.50
)

// ThresholdError reports that a bootstrap stage accumulated too many
// failures to continue.
type ThresholdError struct {
	Stage    string
	Failures int
	Attempts int
	Limit    float64
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("bootstrap %s: %d/%d failures exceeds %.0f%% limit",
		e.Stage, e.Failures, e.Attempts, e.Limit*100)
}

// Builder performs the one-time network bootstrap.
type Builder struct {
	Registry  *agents.Registry
	Client    ledger.Client
	Clock     ledger.Clock
	Collector collector.Collector

	// BatchSize bounds how many registrations are grouped per batch.
	BatchSize int

	// TrustValiditySeconds is the validity horizon of seeded trust edges.
	TrustValiditySeconds uint64

	// TrustPeersPerAgent is how many random peers each agent trusts at seed
	// time.
	TrustPeersPerAgent int

	rng *rand.Rand
}

// NewBuilder creates a builder with the default batch size and a one-year
// trust horizon.
func NewBuilder(reg *agents.Registry, client ledger.Client, clock ledger.Clock, col collector.Collector, rng *rand.Rand) *Builder {
	return &Builder{
		Registry:             reg,
		Client:               client,
		Clock:                clock,
		Collector:            col,
		BatchSize:            10,
		TrustValiditySeconds: 365 * 24 * 3600,
		TrustPeersPerAgent:   2,
		rng:                  rng,
	}
}

// BuildInitialPopulation creates targetSize agents according to the weight
// distribution, registers them with the ledger, and seeds trust
// relationships. A nil return means the network is ready for evolution.
func (b *Builder) BuildInitialPopulation(targetSize int, weights map[string]float64) error {
	counts, err := DistributeCounts(targetSize, weights)
	if err != nil {
		return err
	}

	created, err := b.Registry.CreateAgents(counts)
	if err != nil {
		return err
	}
	if len(created) != targetSize {
		return fmt.Errorf("bootstrap: created %d agents, wanted %d", len(created), targetSize)
	}
	slog.Info("population created", "agents", len(created), "profiles", len(counts))

	for _, a := range created {
		if added := b.Registry.EnsureAddresses(a); added > 0 {
			slog.Debug("added addresses", "agent", a.ID, "added", added)
		}
		if err := b.Collector.RecordAgent(a); err != nil {
			slog.Warn("collector record agent failed", "agent", a.ID, "error", err)
		}
	}

	if err := b.registerAgents(created); err != nil {
		return err
	}
	return b.seedTrust(created)
}

// DistributeCounts converts profile weights into absolute per-profile
// counts summing exactly to target. Profiles are walked in sorted-name
// order and the last one absorbs the rounding remainder.
func DistributeCounts(target int, weights map[string]float64) (map[string]int, error) {
	if len(weights) == 0 {
		return nil, &profile.ConfigError{Field: "agent_distribution", Reason: "missing"}
	}

	names := make([]string, 0, len(weights))
	total := 0.0
	for name, w := range weights {
		if w < 0 {
			return nil, &profile.ConfigError{Field: "agent_distribution." + name, Reason: "negative weight"}
		}
		names = append(names, name)
		total += w
	}
	if total <= 0 {
		return nil, &profile.ConfigError{Field: "agent_distribution", Reason: "weights sum to zero"}
	}
	sort.Strings(names)

	counts := make(map[string]int, len(names))
	assigned := 0
	for _, name := range names[:len(names)-1] {
		n := int(float64(target) * weights[name] / total)
		counts[name] = n
		assigned += n
	}
	counts[names[len(names)-1]] = target - assigned
	return counts, nil
}

// registerAgents enrolls every agent's primary address in fixed-size
// batches. The cumulative failure rate is checked after each batch.
func (b *Builder) registerAgents(population []*agents.Agent) error {
	attempted := 0
	failed := 0

	for start := 0; start < len(population); start += b.BatchSize {
		end := start + b.BatchSize
		if end > len(population) {
			end = len(population)
		}

		batchFailed := 0
		for _, a := range population[start:end] {
			attempted++
			if err := b.registerOne(a.Primary()); err != nil {
				failed++
				batchFailed++
				slog.Warn("registration failed", "agent", a.ID, "address", a.Primary(), "error", err)
			}
		}
		slog.Debug("registration batch done",
			"from", start, "to", end, "batch_failures", batchFailed)

		if float64(failed) > registrationFailureLimit*float64(attempted) {
			return &ThresholdError{
				Stage:    "registration",
				Failures: failed,
				Attempts: attempted,
				Limit:    registrationFailureLimit,
			}
		}
	}

	slog.Info("registration complete", "attempted", attempted, "failed", failed)
	return nil
}

func (b *Builder) registerOne(addr ledger.Address) error {
	registered, err := b.Client.IsRegistered(addr)
	if err != nil {
		return err
	}
	if registered {
		return nil
	}
	return b.Client.Register(addr)
}

// seedTrust gives every agent up to TrustPeersPerAgent random trusted peers
// with a long validity horizon.
func (b *Builder) seedTrust(population []*agents.Agent) error {
	if len(population) < 2 {
		return nil
	}

	now, err := b.Clock.CurrentTimestamp()
	if err != nil {
		return &ledger.ClockError{Op: "timestamp", Err: err}
	}
	expiry := now + b.TrustValiditySeconds

	attempted := 0
	failed := 0
	for _, a := range population {
		for _, peer := range b.pickPeers(a, population) {
			attempted++
			if err := b.Client.CreateTrust(a.Primary(), peer.Primary(), expiry); err != nil {
				failed++
				slog.Warn("trust seeding failed",
					"from", a.Primary(), "to", peer.Primary(), "error", err)
			}
		}
	}

	if float64(failed) > trustFailureLimit*float64(attempted) {
		return &ThresholdError{
			Stage:    "trust_seeding",
			Failures: failed,
			Attempts: attempted,
			Limit:    trustFailureLimit,
		}
	}

	slog.Info("trust graph seeded", "attempted", attempted, "failed", failed)
	return nil
}

// pickPeers selects up to TrustPeersPerAgent distinct other agents.
func (b *Builder) pickPeers(a *agents.Agent, population []*agents.Agent) []*agents.Agent {
	var peers []*agents.Agent
	seen := map[*agents.Agent]bool{a: true}
	for tries := 0; tries < 10 && len(peers) < b.TrustPeersPerAgent; tries++ {
		cand := population[b.rng.Intn(len(population))]
		if seen[cand] {
			continue
		}
		seen[cand] = true
		peers = append(peers, cand)
	}
	return peers
}
