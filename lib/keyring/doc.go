// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyring indexes locally held session keys by the delegation
// chains that authorize them, and answers the one question the rest
// of the SDK asks: which key may perform this action on this path.
//
// The registry is purely in-memory and performs no I/O and no
// cryptographic verification — chains are structurally validated on
// registration and trusted to have been verified by the signing
// engine when they were created or decoded.
//
// Selection is most-specific-wins: among registered chains whose
// terminal delegation is active, unrevoked, and covers the requested
// action and path, the longest terminal path wins; ties go to the
// latest expiry (a shorter-path key that lives longer is still usable
// and more durable). "No key found" is a normal answer, not an error
// — callers treat it as "authorization required".
//
// Revocation is advisory (see the delegation package comment): a
// revoked ID is filtered from selection locally, but nothing forces
// early expiry of a delegation already distributed elsewhere.
package keyring
