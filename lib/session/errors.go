// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "errors"

// Errors returned by controller operations. The rejection outcomes
// (ErrSignRejected, ErrSpaceCreationDeclined) represent a user or
// policy decision, not a fault — callers branch on them with
// errors.Is rather than treating them as failures to retry.
var (
	// ErrSignRejected reports that the configured approval strategy
	// denied the sign-in request.
	ErrSignRejected = errors.New("session: sign-in rejected")

	// ErrSpaceCreationDeclined reports that the space-creation
	// handler declined first-time provisioning.
	ErrSpaceCreationDeclined = errors.New("session: space creation declined")

	// ErrHandshakeFailed reports a transport or verification failure
	// from the signing engine or the remote host. Surfaced as-is,
	// never retried here — retry policy belongs to the transport.
	ErrHandshakeFailed = errors.New("session: handshake failed")

	// ErrInsufficientCapability reports that no registered key covers
	// a requested path and action.
	ErrInsufficientCapability = errors.New("session: insufficient capability")

	// ErrWalletRequired reports an operation that needs a wallet on a
	// session that has none connected.
	ErrWalletRequired = errors.New("session: wallet required")

	// ErrNotSignedIn reports an operation that needs a completed
	// wallet-bound sign-in.
	ErrNotSignedIn = errors.New("session: not signed in")
)
