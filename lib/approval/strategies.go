// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"context"
	"fmt"
)

// AutoSign returns a strategy that approves every request without
// external interaction. When sign is non-nil it is invoked to produce
// the signature directly; a nil sign approves only, leaving signature
// production to the caller's transport.
func AutoSign(sign func(Request) (string, error)) Strategy {
	return autoSign{sign: sign}
}

type autoSign struct {
	sign func(Request) (string, error)
}

func (s autoSign) Resolve(_ context.Context, request Request) (Response, error) {
	if s.sign == nil {
		return Response{Approved: true}, nil
	}
	signature, err := s.sign(request)
	if err != nil {
		return Response{}, fmt.Errorf("approval: auto-sign signing failed: %w", err)
	}
	return Response{Approved: true, Signature: signature}, nil
}

// AutoReject returns a strategy that denies every request with reason
// "auto-reject".
func AutoReject() Strategy {
	return autoReject{}
}

type autoReject struct{}

func (autoReject) Resolve(context.Context, Request) (Response, error) {
	return Response{Approved: false, Reason: "auto-reject"}, nil
}

// Decision is a callback handler's verdict on a request.
type Decision struct {
	Approved bool
	Reason   string
}

// Callback returns a strategy that delegates the decision to the
// supplied handler. The handler decides whether to sign, not how — on
// approval the caller still obtains the signature through whatever
// transport it holds.
func Callback(decide func(ctx context.Context, request Request) (Decision, error)) Strategy {
	return callback{decide: decide}
}

type callback struct {
	decide func(ctx context.Context, request Request) (Decision, error)
}

func (s callback) Resolve(ctx context.Context, request Request) (Response, error) {
	if s.decide == nil {
		return Response{}, fmt.Errorf("%w: callback strategy with no handler", ErrMisconfigured)
	}
	decision, err := s.decide(ctx, request)
	if err != nil {
		return Response{}, fmt.Errorf("approval: callback handler failed: %w", err)
	}
	return Response{Approved: decision.Approved, Reason: decision.Reason}, nil
}
