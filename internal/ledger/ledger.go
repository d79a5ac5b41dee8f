// Package ledger defines the external collaborators the traffic generator
// drives: the value-transfer ledger itself and the simulated-time clock.
// The scheduler core never sees a concrete transport — only these interfaces.
package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
)

// Address identifies an actor on the ledger, rendered as 0x-prefixed hex.
type Address string

// RandomAddress derives a fresh 20-byte address from the given generator.
// Using the injected generator keeps whole runs reproducible from one seed.
func RandomAddress(rng *rand.Rand) Address {
	var b [20]byte
	rng.Read(b[:])
	return Address("0x" + hex.EncodeToString(b[:]))
}

// Client is the boundary to the stateful ledger. Every mutating call returns
// an error rather than panicking; the scheduler converts errors into failed
// action outcomes and never lets them propagate further.
type Client interface {
	// IsRegistered reports whether the address is a known actor.
	IsRegistered(addr Address) (bool, error)

	// Register enrolls an address as an actor on the ledger.
	Register(addr Address) error

	// Balance returns the spendable balance of an address.
	Balance(addr Address) (uint64, error)

	// MintAvailable returns how many units the address could mint right now.
	MintAvailable(addr Address) (uint64, error)

	// Mint issues the accrued personal currency and returns the amount minted.
	Mint(addr Address) (uint64, error)

	// TrustExists reports whether `from` currently trusts `to`.
	TrustExists(from, to Address) (bool, error)

	// CreateTrust makes `from` trust `to` until the given unix timestamp.
	CreateTrust(from, to Address, expiry uint64) error

	// Transfer moves value from one actor to another. The recipient must
	// trust the sender for the transfer to be accepted.
	Transfer(from, to Address, amount uint64) error

	// CreateGroup creates a group entity owned by `owner` and returns its
	// freshly assigned address.
	CreateGroup(owner Address, name string) (Address, error)
}

// Clock is the simulated-time abstraction. Blocks only move when the
// scheduler asks them to.
type Clock interface {
	// Advance moves the chain forward by the given number of blocks, each
	// worth blockTimeSeconds of simulated time.
	Advance(blocks, blockTimeSeconds int) error

	// CurrentBlock returns the current block height.
	CurrentBlock() (uint64, error)

	// CurrentTimestamp returns the current simulated unix time.
	CurrentTimestamp() (uint64, error)
}

// Sentinel errors returned by ledger implementations.
var (
	ErrNotRegistered       = errors.New("address not registered")
	ErrAlreadyRegistered   = errors.New("address already registered")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoTrust             = errors.New("recipient does not trust sender")
	ErrNothingToMint       = errors.New("no issuance accrued")
)

// ClockError wraps a failure of the clock abstraction. Time moving is a
// precondition for everything else, so callers treat it as fatal for the
// current iteration.
type ClockError struct {
	Op  string
	Err error
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("clock %s: %v", e.Op, e.Err)
}

func (e *ClockError) Unwrap() error { return e.Err }
