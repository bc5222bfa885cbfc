// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package space models the remote-hosted storage scope a wallet-bound
// identity owns, and the handshake hooks around first-time space
// provisioning.
package space

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Context describes a space-creation attempt: which space, for which
// wallet, on which chain and host.
type Context struct {
	SpaceID string
	Address string
	ChainID uint64
	Host    string
}

// Handler confirms first-time space provisioning. ConfirmCreation may
// suspend while a user or operator decides; false declines the
// creation without error.
type Handler interface {
	ConfirmCreation(ctx context.Context, creation Context) (bool, error)
}

// Observer receives creation-outcome notifications. Optional: a
// Handler that also implements Observer gets each hook at most once
// per creation attempt, after the outcome is known.
type Observer interface {
	Created(creation Context)
	CreationFailed(creation Context, err error)
}

// AutoApprove is the default Handler: it confirms unconditionally.
// Suitable for backend and automated use.
type AutoApprove struct{}

// ConfirmCreation implements Handler.
func (AutoApprove) ConfirmCreation(context.Context, Context) (bool, error) {
	return true, nil
}

// Service is the remote collaborator boundary for space provisioning.
// Implementations talk to the storage host; this core never performs
// the HTTP itself and surfaces transport failures unretried.
type Service interface {
	// Exists reports whether the space is already provisioned.
	Exists(ctx context.Context, spaceID string) (bool, error)

	// Create provisions the space, anchored by the encoded root
	// delegation that grants the session key access.
	Create(ctx context.Context, creation Context, rootProof []byte) error
}

// idDomainKey is the 32-byte BLAKE3 key for space IDs: ASCII domain
// name zero-padded to 32 bytes.
var idDomainKey = [32]byte{
	't', 'e', 's', 's', 'e', 'r', 'a', '.', 's', 'p', 'a', 'c', 'e',
}

// DeriveID computes the deterministic space identifier for a wallet
// on a chain and host: "space-" plus 16 hex characters of the BLAKE3
// keyed hash. The same owner always resolves to the same space.
func DeriveID(address string, chainID uint64, host string) string {
	hasher, err := blake3.NewKeyed(idDomainKey[:])
	if err != nil {
		panic("space: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	fmt.Fprintf(hasher, "%s\x00%d\x00%s", address, chainID, host)
	sum := hasher.Sum(nil)
	return "space-" + hex.EncodeToString(sum[:8])
}
