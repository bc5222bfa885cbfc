// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns the authenticated state of a client and drives
// the flows that change it: sign-in, wallet upgrade, sign-out, and
// delegation creation and consumption.
//
// A Controller starts session-only — a session key and nothing else,
// no network call. In that mode the only path to usable capability is
// UseDelegation: consuming a portable delegation someone else minted.
// ConnectWallet upgrades the session in place, attaching a wallet
// identity while preserving the session key and every registered
// chain. SignIn then runs the strategy-mediated handshake that
// anchors the key to a space with a root delegation.
//
// State transitions are sequential; each may suspend on network I/O
// or user interaction. Concurrent SignIn calls coalesce: the second
// caller waits for the first attempt and observes its result, so a
// handshake (and its space-creation side effect) runs at most once.
//
// The cryptographic work — message signing, signature verification,
// delegation token encoding — lives behind the Engine interface. The
// controller never inspects signature bytes.
package session
