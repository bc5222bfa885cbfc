// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package space

import (
	"context"
	"strings"
	"testing"
)

func TestDeriveIDDeterministic(t *testing.T) {
	first := DeriveID("0xabc", 1, "https://node.example.com")
	second := DeriveID("0xabc", 1, "https://node.example.com")
	if first != second {
		t.Errorf("same inputs derived %s and %s", first, second)
	}
	if !strings.HasPrefix(first, "space-") || len(first) != len("space-")+16 {
		t.Errorf("unexpected ID shape: %s", first)
	}
}

func TestDeriveIDDistinguishesInputs(t *testing.T) {
	base := DeriveID("0xabc", 1, "https://node.example.com")

	if DeriveID("0xdef", 1, "https://node.example.com") == base {
		t.Error("different addresses derived the same space")
	}
	if DeriveID("0xabc", 5, "https://node.example.com") == base {
		t.Error("different chains derived the same space")
	}
	if DeriveID("0xabc", 1, "https://other.example.com") == base {
		t.Error("different hosts derived the same space")
	}
}

func TestAutoApprove(t *testing.T) {
	approved, err := AutoApprove{}.ConfirmCreation(context.Background(), Context{SpaceID: "space-00"})
	if err != nil {
		t.Fatalf("ConfirmCreation: %v", err)
	}
	if !approved {
		t.Error("AutoApprove declined")
	}
}
