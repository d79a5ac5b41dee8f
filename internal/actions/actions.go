// Package actions provides the closed set of ledger action kinds plus a
// generic name-keyed registry for actions registered as data rather than
// code. The evolver dispatches built-in kinds through an exhaustive switch;
// anything else falls through to the registry.
package actions

import (
	"fmt"

	"github.com/talgya/trustflow/internal/agents"
)

// Kind enumerates the built-in ledger action kinds.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindRegister
	KindMint
	KindCreateTrust
	KindTransfer
	KindCreateGroup
)

// Canonical action names as they appear in profile documents.
const (
	NameRegister    = "register"
	NameMint        = "mint"
	NameCreateTrust = "create_trust"
	NameTransfer    = "transfer"
	NameCreateGroup = "create_group"
)

var kindNames = map[Kind]string{
	KindRegister:    NameRegister,
	KindMint:        NameMint,
	KindCreateTrust: NameCreateTrust,
	KindTransfer:    NameTransfer,
	KindCreateGroup: NameCreateGroup,
}

var namesToKind = map[string]Kind{
	NameRegister:    KindRegister,
	NameMint:        KindMint,
	NameCreateTrust: KindCreateTrust,
	NameTransfer:    KindTransfer,
	NameCreateGroup: KindCreateGroup,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps an action name to its kind. ok is false for names that are
// not built in, which routes them to the generic registry instead.
func ParseKind(name string) (Kind, bool) {
	k, ok := namesToKind[name]
	return k, ok
}

// Action is the uniform validate/execute contract for pluggable actions.
type Action interface {
	Name() string

	// Validate reports whether the action may run for this agent with
	// these params. Execute is only called when Validate returns true.
	Validate(a *agents.Agent, params map[string]any) bool

	// Execute performs the action and may return result data.
	Execute(a *agents.Agent, params map[string]any) (map[string]any, error)
}

// Result is the outcome of one executed action.
type Result struct {
	Success bool
	Data    map[string]any
	Err     error
}

// UnknownActionError reports a dispatch against a name no action was
// registered under.
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Name)
}

// ActionError wraps a validation or execution failure of a named action.
type ActionError struct {
	Name string
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q: %v", e.Name, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
