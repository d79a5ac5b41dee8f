package ledger

import (
	"fmt"
	"math/rand"
	"sync"
)

// Issuance accrues one unit per simulated hour per registered actor.
const issuancePeriodSeconds = 3600

// Memory is an in-memory ledger and clock used by the binary's default
// configuration and by tests. It models just enough of a trust-graph
// value-transfer network to make the generated traffic meaningful:
// registration, per-actor issuance, directed trust edges with expiry,
// trust-gated transfers, and group entities.
//
// The mutex exists because the binary's signal handler reads state while the
// evolver loop writes it; the scheduler core itself is single-threaded.
type Memory struct {
	mu sync.Mutex

	block     uint64
	timestamp uint64

	registered map[Address]bool
	balances   map[Address]uint64
	trusts     map[Address]map[Address]uint64 // from → to → expiry timestamp
	groups     map[Address]string
	lastMint   map[Address]uint64 // address → timestamp of last issuance

	rng *rand.Rand

	// FailOp, when set, is consulted before every mutating call with the
	// operation name ("register", "trust", "transfer", "mint", "group",
	// "advance"). Returning true makes that call fail. Tests use it to
	// inject deterministic failure rates.
	FailOp func(op string) bool
}

// NewMemory creates an empty in-memory ledger. The seed only feeds group
// address generation, so two runs with the same seed mint identical addresses.
func NewMemory(seed int64) *Memory {
	return &Memory{
		timestamp:  1_700_000_000,
		registered: make(map[Address]bool),
		balances:   make(map[Address]uint64),
		trusts:     make(map[Address]map[Address]uint64),
		groups:     make(map[Address]string),
		lastMint:   make(map[Address]uint64),
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (m *Memory) fail(op string) bool {
	return m.FailOp != nil && m.FailOp(op)
}

// IsRegistered reports whether the address has been enrolled.
func (m *Memory) IsRegistered(addr Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registered[addr], nil
}

// Register enrolls an actor and credits a small starting balance.
func (m *Memory) Register(addr Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("register") {
		return fmt.Errorf("register %s: injected failure", addr)
	}
	if m.registered[addr] {
		return ErrAlreadyRegistered
	}
	m.registered[addr] = true
	m.balances[addr] = 100
	m.lastMint[addr] = m.timestamp
	return nil
}

// Balance returns the spendable balance of an address.
func (m *Memory) Balance(addr Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.registered[addr] {
		return 0, ErrNotRegistered
	}
	return m.balances[addr], nil
}

// MintAvailable returns the issuance accrued since the last mint.
func (m *Memory) MintAvailable(addr Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.registered[addr] {
		return 0, ErrNotRegistered
	}
	return m.accrued(addr), nil
}

func (m *Memory) accrued(addr Address) uint64 {
	since := m.timestamp - m.lastMint[addr]
	return since / issuancePeriodSeconds
}

// Mint credits the accrued issuance to the actor's balance.
func (m *Memory) Mint(addr Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("mint") {
		return 0, fmt.Errorf("mint %s: injected failure", addr)
	}
	if !m.registered[addr] {
		return 0, ErrNotRegistered
	}
	amount := m.accrued(addr)
	if amount == 0 {
		return 0, ErrNothingToMint
	}
	m.balances[addr] += amount
	m.lastMint[addr] = m.timestamp
	return amount, nil
}

// TrustExists reports whether `from` trusts `to` and the edge has not expired.
func (m *Memory) TrustExists(from, to Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.trusts[from][to]
	return ok && expiry > m.timestamp, nil
}

// CreateTrust makes `from` trust `to` until the given timestamp.
func (m *Memory) CreateTrust(from, to Address, expiry uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("trust") {
		return fmt.Errorf("trust %s -> %s: injected failure", from, to)
	}
	if !m.registered[from] || !m.registered[to] {
		return ErrNotRegistered
	}
	if m.trusts[from] == nil {
		m.trusts[from] = make(map[Address]uint64)
	}
	m.trusts[from][to] = expiry
	return nil
}

// Transfer moves value. The recipient must trust the sender (self-transfers
// are always accepted).
func (m *Memory) Transfer(from, to Address, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("transfer") {
		return fmt.Errorf("transfer %s -> %s: injected failure", from, to)
	}
	if !m.registered[from] || !m.registered[to] {
		return ErrNotRegistered
	}
	if from != to {
		expiry, ok := m.trusts[to][from]
		if !ok || expiry <= m.timestamp {
			return ErrNoTrust
		}
	}
	if m.balances[from] < amount {
		return ErrInsufficientBalance
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

// CreateGroup creates a group entity and registers its address as an actor.
func (m *Memory) CreateGroup(owner Address, name string) (Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("group") {
		return "", fmt.Errorf("group %q: injected failure", name)
	}
	if !m.registered[owner] {
		return "", ErrNotRegistered
	}
	addr := RandomAddress(m.rng)
	m.registered[addr] = true
	m.groups[addr] = name
	m.lastMint[addr] = m.timestamp
	return addr, nil
}

// GroupCount returns the number of group entities created so far.
func (m *Memory) GroupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.groups)
}

// Advance moves the chain forward.
func (m *Memory) Advance(blocks, blockTimeSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("advance") {
		return fmt.Errorf("advance %d blocks: injected failure", blocks)
	}
	m.block += uint64(blocks)
	m.timestamp += uint64(blocks) * uint64(blockTimeSeconds)
	return nil
}

// CurrentBlock returns the current block height.
func (m *Memory) CurrentBlock() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.block, nil
}

// CurrentTimestamp returns the current simulated unix time.
func (m *Memory) CurrentTimestamp() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timestamp, nil
}
