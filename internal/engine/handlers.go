package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/trustflow/internal/actions"
	"github.com/talgya/trustflow/internal/agents"
	"github.com/talgya/trustflow/internal/ledger"
)

// Handler defaults, overridable per action through profile constraints.
const (
	defaultTrustValiditySeconds = 365 * 24 * 3600
	defaultAmountFraction       = 0.25
	peerPickTries               = 5
)

func (e *Evolver) dispatch(a *agents.Agent, intent *agents.Intent) bool {
	kind, ok := actions.ParseKind(intent.Action)
	if !ok {
		return e.dispatchGeneric(a, intent)
	}

	switch kind {
	case actions.KindRegister:
		return e.handleRegister(intent)
	case actions.KindMint:
		return e.handleMint(intent)
	case actions.KindCreateTrust:
		return e.handleCreateTrust(a, intent)
	case actions.KindTransfer:
		return e.handleTransfer(a, intent)
	case actions.KindCreateGroup:
		return e.handleCreateGroup(a, intent)
	case actions.KindUnknown:
	}
	return false
}

// dispatchGeneric routes non-built-in actions to the pluggable executor.
func (e *Evolver) dispatchGeneric(a *agents.Agent, intent *agents.Intent) bool {
	if e.Executor == nil {
		slog.Warn("no handler for action", "action", intent.Action)
		return false
	}
	res := e.Executor.Execute(intent.Action, a, intent.Params)
	if res.Err != nil {
		slog.Debug("action failed", "action", intent.Action, "error", res.Err)
	}
	return res.Success
}

func (e *Evolver) handleRegister(intent *agents.Intent) bool {
	registered, err := e.Client.IsRegistered(intent.Address)
	if err != nil {
		slog.Debug("registration check failed", "address", intent.Address, "error", err)
		return false
	}
	if registered {
		return true
	}
	if err := e.Client.Register(intent.Address); err != nil {
		slog.Debug("registration failed", "address", intent.Address, "error", err)
		return false
	}
	return true
}

func (e *Evolver) handleMint(intent *agents.Intent) bool {
	available, err := e.Client.MintAvailable(intent.Address)
	if err != nil || available == 0 {
		return false
	}
	if _, err := e.Client.Mint(intent.Address); err != nil {
		slog.Debug("mint failed", "address", intent.Address, "error", err)
		return false
	}
	return true
}

// handleCreateTrust trusts a random peer the sender does not already trust.
func (e *Evolver) handleCreateTrust(a *agents.Agent, intent *agents.Intent) bool {
	now, err := e.Clock.CurrentTimestamp()
	if err != nil {
		return false
	}
	validity := uint64(intParam(intent.Params, "validity_seconds", defaultTrustValiditySeconds))

	for tries := 0; tries < peerPickTries; tries++ {
		peer := e.pickPeer(a)
		if peer == nil {
			return false
		}
		exists, err := e.Client.TrustExists(intent.Address, peer.Primary())
		if err != nil || exists {
			continue
		}
		if err := e.Client.CreateTrust(intent.Address, peer.Primary(), now+validity); err != nil {
			slog.Debug("trust creation failed",
				"from", intent.Address, "to", peer.Primary(), "error", err)
			return false
		}
		return true
	}
	return false
}

// handleTransfer sends a random fraction of the available balance to a peer
// who trusts the sender.
func (e *Evolver) handleTransfer(a *agents.Agent, intent *agents.Intent) bool {
	recipient := e.pickTrustingPeer(a, intent.Address)
	if recipient == "" {
		return false
	}

	balance, err := e.Client.Balance(intent.Address)
	if err != nil || balance == 0 {
		return false
	}

	fraction := floatParam(intent.Params, "amount_fraction", defaultAmountFraction)
	amount := uint64(float64(balance) * fraction * e.rng.Float64())
	if amount == 0 {
		amount = 1
	}

	if err := e.Client.Transfer(intent.Address, recipient, amount); err != nil {
		slog.Debug("transfer failed",
			"from", intent.Address, "to", recipient, "amount", amount, "error", err)
		return false
	}
	return true
}

func (e *Evolver) handleCreateGroup(a *agents.Agent, intent *agents.Intent) bool {
	name, _ := intent.Params["group_name"].(string)
	if name == "" {
		block, _ := e.Clock.CurrentBlock()
		name = fmt.Sprintf("group-%s-%d", a.ID.String()[:8], block)
	}
	if _, err := e.Client.CreateGroup(intent.Address, name); err != nil {
		slog.Debug("group creation failed", "owner", intent.Address, "error", err)
		return false
	}
	return true
}

// pickPeer returns a random agent other than a, or nil when the population
// is too small.
func (e *Evolver) pickPeer(a *agents.Agent) *agents.Agent {
	population := e.Registry.Agents()
	if len(population) < 2 {
		return nil
	}
	for tries := 0; tries < peerPickTries; tries++ {
		cand := population[e.rng.Intn(len(population))]
		if cand.ID != a.ID {
			return cand
		}
	}
	return nil
}

// pickTrustingPeer finds a peer whose primary address trusts the sender.
func (e *Evolver) pickTrustingPeer(a *agents.Agent, sender ledger.Address) ledger.Address {
	for tries := 0; tries < peerPickTries; tries++ {
		peer := e.pickPeer(a)
		if peer == nil {
			return ""
		}
		trusts, err := e.Client.TrustExists(peer.Primary(), sender)
		if err != nil {
			continue
		}
		if trusts {
			return peer.Primary()
		}
	}
	return ""
}

func floatParam(params map[string]any, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}
