// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"context"
	"errors"
	"testing"
)

var testRequest = Request{
	Identity: "did:key:session-a",
	ChainID:  1,
	Message:  "authorize space access",
	Kind:     KindSIWE,
}

func TestAutoSignWithSigner(t *testing.T) {
	strategy := AutoSign(func(request Request) (string, error) {
		if request.Message != testRequest.Message {
			t.Errorf("signer saw message %q", request.Message)
		}
		return "0xsignature", nil
	})

	response, err := strategy.Resolve(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !response.Approved {
		t.Error("auto-sign did not approve")
	}
	if response.Signature != "0xsignature" {
		t.Errorf("Signature = %q", response.Signature)
	}
}

func TestAutoSignApproveOnly(t *testing.T) {
	response, err := AutoSign(nil).Resolve(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !response.Approved || response.Signature != "" {
		t.Errorf("response = %+v, want approved without signature", response)
	}
}

func TestAutoSignSignerFailure(t *testing.T) {
	strategy := AutoSign(func(Request) (string, error) {
		return "", errors.New("key unavailable")
	})
	if _, err := strategy.Resolve(context.Background(), testRequest); err == nil {
		t.Error("signing failure not surfaced")
	}
}

func TestAutoReject(t *testing.T) {
	response, err := AutoReject().Resolve(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if response.Approved {
		t.Error("auto-reject approved")
	}
	if response.Reason != "auto-reject" {
		t.Errorf("Reason = %q, want auto-reject", response.Reason)
	}
}

func TestCallbackApprove(t *testing.T) {
	strategy := Callback(func(_ context.Context, request Request) (Decision, error) {
		return Decision{Approved: true}, nil
	})

	response, err := strategy.Resolve(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !response.Approved {
		t.Error("approved decision not reflected")
	}
	// The callback decides whether, not how: no signature here.
	if response.Signature != "" {
		t.Errorf("Signature = %q, want empty", response.Signature)
	}
}

func TestCallbackDenyIsNotAnError(t *testing.T) {
	strategy := Callback(func(context.Context, Request) (Decision, error) {
		return Decision{Approved: false, Reason: "user declined"}, nil
	})

	response, err := strategy.Resolve(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("denial surfaced as error: %v", err)
	}
	if response.Approved || response.Reason != "user declined" {
		t.Errorf("response = %+v", response)
	}
}

func TestCallbackNilHandler(t *testing.T) {
	_, err := Callback(nil).Resolve(context.Background(), testRequest)
	if !errors.Is(err, ErrMisconfigured) {
		t.Errorf("error = %v, want ErrMisconfigured", err)
	}
}
