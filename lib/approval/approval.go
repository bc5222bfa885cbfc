// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"context"
	"errors"
)

// Kind distinguishes the two message families a strategy may be asked
// to approve.
type Kind string

const (
	// KindSIWE is a Sign-In with Ethereum authorization message.
	KindSIWE Kind = "siwe"

	// KindMessage is a plain message signature request.
	KindMessage Kind = "message"
)

// Request is a pending authorization to approve or deny.
type Request struct {
	// Identity is the DID on whose behalf the signature is requested.
	Identity string

	// ChainID is the EIP-155 chain the request is bound to.
	ChainID uint64

	// Message is the human-readable text to be signed.
	Message string

	// Kind is the message family.
	Kind Kind
}

// Response is a strategy's decision. A denial carries a Reason;
// Signature is set only when the strategy itself produced one
// (auto-sign) — otherwise the caller obtains the signature through
// its own transport after approval.
type Response struct {
	Approved  bool
	Signature string
	Reason    string
}

// Strategy resolves a pending Request into a Response. A normal
// rejection is a Response with Approved false and a nil error; errors
// are reserved for structural problems and cancellation.
type Strategy interface {
	Resolve(ctx context.Context, request Request) (Response, error)
}

// ErrMisconfigured reports a structurally unusable strategy, such as
// an EventStrategy with no bus bound or no timeout set.
var ErrMisconfigured = errors.New("approval: strategy misconfigured")
