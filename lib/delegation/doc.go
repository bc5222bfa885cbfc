// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package delegation defines the signed grant at the heart of the SDK:
// a scoped, expiring, revocable capability issued by one identity to
// another, chained from a root delegation anchored at the space owner.
//
// A delegation never widens what its parent granted. Child expiry is
// bounded by parent expiry, child actions are a subset of parent
// actions, and the child path is the parent path or nested under it.
// ValidateChain enforces these invariants locally; cryptographic
// verification of the Proof bytes belongs to the signing engine and is
// never performed here.
//
// # Identity
//
// Delegation IDs are content-derived: the BLAKE3 keyed hash (domain
// key "tessera.delegation") of the deterministic CBOR encoding of the
// delegation with ID, Revoked, and Proof cleared. Two delegations with
// the same grant hash to the same ID regardless of where they were
// encoded. The Revoked flag is advisory local metadata and must not
// change the identity of the grant it annotates.
//
// # Transport
//
// A delegation travels out-of-band as a Portable envelope: the
// delegation, its proof chain, and the transport metadata (owner
// address, chain ID, host, authorization header). Encode produces a
// base64url string (CBOR, zstd-compressed) safe to embed in a URL
// query parameter; Decode inverts it losslessly.
package delegation
