package agents

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/trustflow/internal/ledger"
	"github.com/talgya/trustflow/internal/profile"
)

// Registry creates and indexes agents.
type Registry struct {
	profiles map[string]*profile.Profile
	rng      *rand.Rand

	agents    map[uuid.UUID]*Agent
	order     []*Agent // Creation order, the stable iteration basis
	byAddress map[ledger.Address]uuid.UUID

	presetUsed map[string]int // Profile name → preset addresses consumed
}

// NewRegistry creates a registry over the given profile catalog. The
// generator seeds both fresh addresses and each agent's selection draws.
func NewRegistry(profiles map[string]*profile.Profile, rng *rand.Rand) *Registry {
	return &Registry{
		profiles:   profiles,
		rng:        rng,
		agents:     make(map[uuid.UUID]*Agent),
		byAddress:  make(map[ledger.Address]uuid.UUID),
		presetUsed: make(map[string]int),
	}
}

// CreateAgent instantiates one agent of the named profile type and allocates
// its first address — a preset one if the profile still has any, otherwise a
// freshly generated identity.
func (r *Registry) CreateAgent(profileName string) (*Agent, error) {
	p, ok := r.profiles[profileName]
	if !ok {
		return nil, &profile.ConfigError{Profile: profileName, Field: "profile", Reason: "unknown profile"}
	}

	id := uuid.New()
	a := NewAgent(id, p, r.rng)

	addr := r.nextPresetAddress(p)
	if addr == "" {
		addr = ledger.RandomAddress(r.rng)
	}
	a.AddAddress(addr)

	r.agents[id] = a
	r.order = append(r.order, a)
	r.byAddress[addr] = id
	return a, nil
}

func (r *Registry) nextPresetAddress(p *profile.Profile) ledger.Address {
	used := r.presetUsed[p.Name]
	if used >= len(p.PresetAddresses) {
		return ""
	}
	r.presetUsed[p.Name] = used + 1
	return p.PresetAddresses[used]
}

// CreateAgents creates count agents per profile and returns them all. The
// caller treats a shortfall as a fatal bootstrap error, so any creation
// failure aborts immediately.
func (r *Registry) CreateAgents(distribution map[string]int) ([]*Agent, error) {
	total := 0
	for _, n := range distribution {
		total += n
	}

	created := make([]*Agent, 0, total)
	for _, name := range sortedKeys(distribution) {
		for i := 0; i < distribution[name]; i++ {
			a, err := r.CreateAgent(name)
			if err != nil {
				return nil, fmt.Errorf("create agents: %w", err)
			}
			created = append(created, a)
		}
	}
	return created, nil
}

// EnsureAddresses tops the agent up to its profile's target account count
// and returns how many addresses were added.
func (r *Registry) EnsureAddresses(a *Agent) int {
	added := 0
	for len(a.Addresses) < a.Profile.TargetAccountCount {
		addr := ledger.RandomAddress(r.rng)
		a.AddAddress(addr)
		r.byAddress[addr] = a.ID
		added++
	}
	return added
}

// RegisterAddress attaches an externally created address to a known agent.
func (r *Registry) RegisterAddress(addr ledger.Address, agentID uuid.UUID) error {
	a, ok := r.agents[agentID]
	if !ok {
		return fmt.Errorf("register address %s: unknown agent %s", addr, agentID)
	}
	a.AddAddress(addr)
	r.byAddress[addr] = agentID
	return nil
}

// ByAddress resolves an address back to its owning agent.
func (r *Registry) ByAddress(addr ledger.Address) (*Agent, bool) {
	id, ok := r.byAddress[addr]
	if !ok {
		return nil, false
	}
	a, ok := r.agents[id]
	return a, ok
}

// ByID resolves an agent id.
func (r *Registry) ByID(id uuid.UUID) (*Agent, bool) {
	a, ok := r.agents[id]
	return a, ok
}

// Agents returns the population in creation order. Callers must not mutate
// the returned slice.
func (r *Registry) Agents() []*Agent {
	return r.order
}

// Len returns the population size.
func (r *Registry) Len() int {
	return len(r.order)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
