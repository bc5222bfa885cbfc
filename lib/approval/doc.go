// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package approval implements the pluggable protocols for resolving a
// pending authorization request into an approve/deny decision.
//
// A Strategy answers one question: may this message be signed on
// behalf of this identity. Four implementations cover the deployment
// spectrum:
//
//   - AutoSign: immediate approval, optionally producing the
//     signature directly. Trusted backend contexts.
//   - AutoReject: immediate denial. Read-only or disabled-write
//     contexts.
//   - Callback: a supplied handler decides. The handler approves or
//     denies; how a signature is then obtained (e.g., a connected
//     wallet) stays with the caller.
//   - EventStrategy: publishes the request on a Bus and waits for a
//     correlated response, with a mandatory timeout. Interactive
//     front-ends subscribe to the bus and answer when the user does.
//
// Rejection is a normal outcome, never a Go error: a strategy returns
// Response{Approved: false} with a reason. Errors are reserved for
// structural misconfiguration (ErrMisconfigured) and for context
// cancellation of an event wait.
package approval
