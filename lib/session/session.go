// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/tessera-works/tessera/lib/approval"
	"github.com/tessera-works/tessera/lib/clock"
	"github.com/tessera-works/tessera/lib/delegation"
	"github.com/tessera-works/tessera/lib/keyring"
	"github.com/tessera-works/tessera/lib/sessionkey"
	"github.com/tessera-works/tessera/lib/space"
)

// State is the controller's position in the session lifecycle.
type State int

const (
	// StateUninitialized is the zero value, before a Controller
	// exists. A constructed Controller never reports it: sign-out
	// returns to session-only or wallet-unsigned.
	StateUninitialized State = iota

	// StateSessionOnly holds a session key and any delegations
	// granted to it, with no wallet-anchored identity.
	StateSessionOnly

	// StateWalletUnsigned has a wallet transport attached but has
	// not completed the sign-in handshake.
	StateWalletUnsigned

	// StateSignedIn is wallet-bound with a registered root
	// delegation chain anchoring space access.
	StateSignedIn
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSessionOnly:
		return "session-only"
	case StateWalletUnsigned:
		return "wallet-unsigned"
	case StateSignedIn:
		return "signed-in"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot of the controller's authenticated
// state.
type Session struct {
	// KeyID identifies the session key in the key manager.
	KeyID string

	// PrimaryDID is the wallet DID when wallet-bound, else the
	// session key's own DID.
	PrimaryDID string

	// SpaceID is set once a space exists for this session.
	SpaceID string

	// SessionOnly reports the no-wallet mode. Implies SpaceID empty
	// and PrimaryDID equal to the session key DID.
	SessionOnly bool

	// WalletConnected reports whether a wallet transport is attached.
	WalletConnected bool
}

// Engine is the opaque signing engine boundary. Implementations own
// every byte-level cryptographic concern; the controller never
// inspects signatures or token material.
type Engine interface {
	// Verify checks a signature by the given identity over a message.
	Verify(ctx context.Context, identity string, message, signature []byte) error

	// EncodeDelegation produces the opaque, signed token material for
	// a delegation (stored as its Proof).
	EncodeDelegation(ctx context.Context, d delegation.Delegation) ([]byte, error)

	// DecodeDelegation parses token material back into a delegation,
	// verifying its signature.
	DecodeDelegation(ctx context.Context, token []byte) (delegation.Delegation, error)
}

// Wallet is a connected wallet transport: the external signer that
// anchors a wallet-bound session.
type Wallet interface {
	// Address is the wallet's account address (EIP-55 form).
	Address() string

	// ChainID is the EIP-155 chain the wallet is bound to.
	ChainID() uint64

	// SignMessage asks the wallet to sign a message, typically
	// prompting the user. Returns the signature.
	SignMessage(ctx context.Context, message string) (string, error)
}

// Options configures a Controller. Zero-value fields get working
// defaults where a default is safe; Engine and Spaces have no
// defaults and are required for any flow that reaches them.
type Options struct {
	// Keys is the session key manager. A fresh manager (with a
	// generated default key) is created when nil.
	Keys *sessionkey.Manager

	// KeyID names the session key to operate with. Defaults to
	// sessionkey.DefaultKeyID.
	KeyID string

	// Registry indexes capability keys. Created when nil.
	Registry *keyring.Registry

	// Strategy resolves sign requests. Defaults to
	// approval.AutoReject() — a deployment must opt in to signing.
	Strategy approval.Strategy

	// SpaceHandler confirms first-time space creation. Defaults to
	// space.AutoApprove.
	SpaceHandler space.Handler

	// Spaces is the remote space-provisioning collaborator. Required
	// for SignIn.
	Spaces space.Service

	// Engine is the signing engine. Required for SignIn and
	// CreateDelegation.
	Engine Engine

	// Wallet optionally binds a wallet at construction, skipping the
	// session-only state.
	Wallet Wallet

	// Host is the remote service endpoint for the space.
	Host string

	// AutoCreateSpace enables first-time space provisioning during
	// SignIn.
	AutoCreateSpace bool

	// SessionTTL bounds the root delegation minted at sign-in.
	// Defaults to 7 days.
	SessionTTL time.Duration

	// DefaultActions are granted to the session key by the sign-in
	// root delegation. Defaults to kv/get, kv/put, kv/del, kv/list.
	DefaultActions []string

	// StateDir enables session persistence when non-empty: a
	// signed-in session is saved there and resumed by a later SignIn,
	// once the strategy approves, while its chain remains valid.
	StateDir string

	// Logger defaults to a discard logger.
	Logger *slog.Logger

	// Clock defaults to clock.Real().
	Clock clock.Clock
}

// defaultSessionTTL bounds sign-in root delegations when Options
// leaves SessionTTL zero.
const defaultSessionTTL = 7 * 24 * time.Hour

// defaultActions is the action set granted at sign-in when Options
// leaves DefaultActions empty.
var defaultActions = []string{"kv/get", "kv/put", "kv/del", "kv/list"}
