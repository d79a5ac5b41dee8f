package ledger

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	m := NewMemory(1)

	ok, err := m.IsRegistered("0x01")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Register("0x01"))
	ok, err = m.IsRegistered("0x01")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, m.Register("0x01"), ErrAlreadyRegistered)

	bal, err := m.Balance("0x01")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), bal)

	_, err = m.Balance("0x02")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestMintAccrual(t *testing.T) {
	m := NewMemory(1)
	require.NoError(t, m.Register("0x01"))

	avail, err := m.MintAvailable("0x01")
	require.NoError(t, err)
	assert.Zero(t, avail)

	_, err = m.Mint("0x01")
	assert.ErrorIs(t, err, ErrNothingToMint)

	// Two simulated hours accrue two units.
	require.NoError(t, m.Advance(720, 10))
	avail, err = m.MintAvailable("0x01")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), avail)

	minted, err := m.Mint("0x01")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), minted)

	bal, _ := m.Balance("0x01")
	assert.Equal(t, uint64(102), bal)

	// Accrual restarts after a mint.
	avail, _ = m.MintAvailable("0x01")
	assert.Zero(t, avail)
}

func TestTrustGatedTransfer(t *testing.T) {
	m := NewMemory(1)
	require.NoError(t, m.Register("0xaa"))
	require.NoError(t, m.Register("0xbb"))

	assert.ErrorIs(t, m.Transfer("0xaa", "0xbb", 10), ErrNoTrust)

	now, _ := m.CurrentTimestamp()
	require.NoError(t, m.CreateTrust("0xbb", "0xaa", now+1000))

	exists, err := m.TrustExists("0xbb", "0xaa")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, m.Transfer("0xaa", "0xbb", 10))
	balA, _ := m.Balance("0xaa")
	balB, _ := m.Balance("0xbb")
	assert.Equal(t, uint64(90), balA)
	assert.Equal(t, uint64(110), balB)

	assert.ErrorIs(t, m.Transfer("0xaa", "0xbb", 1000), ErrInsufficientBalance)
}

func TestTrustExpiry(t *testing.T) {
	m := NewMemory(1)
	require.NoError(t, m.Register("0xaa"))
	require.NoError(t, m.Register("0xbb"))

	now, _ := m.CurrentTimestamp()
	require.NoError(t, m.CreateTrust("0xbb", "0xaa", now+50))

	// Edge expires once simulated time passes the horizon.
	require.NoError(t, m.Advance(10, 10))
	exists, err := m.TrustExists("0xbb", "0xaa")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.ErrorIs(t, m.Transfer("0xaa", "0xbb", 1), ErrNoTrust)
}

func TestCreateGroup(t *testing.T) {
	m := NewMemory(1)
	require.NoError(t, m.Register("0xaa"))

	addr, err := m.CreateGroup("0xaa", "savings-pool")
	require.NoError(t, err)
	assert.NotEmpty(t, addr)
	assert.Equal(t, 1, m.GroupCount())

	registered, _ := m.IsRegistered(addr)
	assert.True(t, registered, "group address becomes an actor")

	_, err = m.CreateGroup("0xzz", "orphan")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestClockAdvance(t *testing.T) {
	m := NewMemory(1)

	block, err := m.CurrentBlock()
	require.NoError(t, err)
	assert.Zero(t, block)

	start, _ := m.CurrentTimestamp()
	require.NoError(t, m.Advance(25, 5))

	block, _ = m.CurrentBlock()
	assert.Equal(t, uint64(25), block)
	ts, _ := m.CurrentTimestamp()
	assert.Equal(t, start+125, ts)
}

func TestFailureInjection(t *testing.T) {
	m := NewMemory(1)
	calls := 0
	m.FailOp = func(op string) bool {
		if op != "register" {
			return false
		}
		calls++
		return calls%2 == 0
	}

	require.NoError(t, m.Register("0x01"))
	assert.Error(t, m.Register("0x02"))
	require.NoError(t, m.Register("0x03"))
}

func TestRandomAddressDeterministic(t *testing.T) {
	a1 := RandomAddress(rand.New(rand.NewSource(5)))
	a2 := RandomAddress(rand.New(rand.NewSource(5)))
	assert.Equal(t, a1, a2)
	assert.Len(t, string(a1), 42)
}
