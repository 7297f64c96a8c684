// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"errors"
	"fmt"
)

const (
	// StateStart is the state of every run before its first step.
	StateStart State = iota
	// StateOSDepsReady means OS-level prerequisites are installed.
	StateOSDepsReady
	// StateTrustEstablished means the vendor signing key is trusted.
	StateTrustEstablished
	// StateSourceRegistered means the vendor package source is registered.
	StateSourceRegistered
	// StateEngineInstalled means the browser engine package is installed.
	StateEngineInstalled
	// StateLangDepsReady means the language dependencies are installed.
	StateLangDepsReady
	// StateReady is terminal: the target satisfies the launch contract.
	StateReady
	// StateFailed is terminal: a step failed. There is no transition out of it.
	StateFailed
)

// ErrInvalidState is returned when a State value is not one of the defined states.
var ErrInvalidState = errors.New("invalid state")

type (
	// State is a provisioning milestone.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}
)

// Milestones returns the non-terminal-failure milestones a plan must produce.
func Milestones() []State {
	return []State{
		StateOSDepsReady,
		StateTrustEstablished,
		StateSourceRegistered,
		StateEngineInstalled,
		StateLangDepsReady,
		StateReady,
	}
}

// String returns the milestone name.
func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateOSDepsReady:
		return "OS_DEPS_READY"
	case StateTrustEstablished:
		return "TRUST_ESTABLISHED"
	case StateSourceRegistered:
		return "SOURCE_REGISTERED"
	case StateEngineInstalled:
		return "ENGINE_INSTALLED"
	case StateLangDepsReady:
		return "LANG_DEPS_READY"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=START .. 6=READY, 7=FAILED)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Validate returns nil if the State is one of the defined states.
func (s State) Validate() error {
	if s < StateStart || s > StateFailed {
		return &InvalidStateError{Value: s}
	}
	return nil
}

// IsTerminal returns true for READY and FAILED.
func (s State) IsTerminal() bool {
	return s == StateReady || s == StateFailed
}
