// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"testing"
	"time"
)

func TestComputeIDStableAcrossActionOrder(t *testing.T) {
	base := Delegation{
		Delegator: "did:pkh:eip155:1:0xabc",
		Delegate:  "did:key:aaaa",
		Path:      "shared/",
		Actions:   []string{"kv/get", "kv/put"},
		Expiry:    2000000000,
	}
	reordered := base
	reordered.Actions = []string{"kv/put", "kv/get"}

	first, err := ComputeID(base)
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	second, err := ComputeID(reordered)
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	if first != second {
		t.Errorf("action order changed ID: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("ID length = %d, want 64 hex chars", len(first))
	}
}

func TestComputeIDIgnoresAdvisoryFields(t *testing.T) {
	base := Delegation{
		Delegator: "did:pkh:eip155:1:0xabc",
		Delegate:  "did:key:aaaa",
		Path:      "shared/",
		Actions:   []string{"kv/get"},
		Expiry:    2000000000,
	}
	annotated := base
	annotated.Revoked = true
	annotated.Proof = []byte{0xde, 0xad}
	annotated.ID = "already-set"

	baseID, err := ComputeID(base)
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	annotatedID, err := ComputeID(annotated)
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	if baseID != annotatedID {
		t.Error("Revoked/Proof/ID changed the content-derived identity")
	}
}

func TestComputeIDDistinguishesGrants(t *testing.T) {
	base := Delegation{
		Delegator: "did:pkh:eip155:1:0xabc",
		Delegate:  "did:key:aaaa",
		Path:      "shared/",
		Actions:   []string{"kv/get"},
		Expiry:    2000000000,
	}
	narrower := base
	narrower.Path = "shared/photos/"

	baseID, _ := ComputeID(base)
	narrowerID, _ := ComputeID(narrower)
	if baseID == narrowerID {
		t.Error("different paths hashed to the same ID")
	}
}

func TestActive(t *testing.T) {
	now := time.Unix(1000, 0)
	current := Delegation{Expiry: 2000}

	if !current.Active(now) {
		t.Error("unexpired delegation reported inactive")
	}

	expired := Delegation{Expiry: 999}
	if expired.Active(now) {
		t.Error("expired delegation reported active")
	}

	atExpiry := Delegation{Expiry: 1000}
	if atExpiry.Active(now) {
		t.Error("delegation at exact expiry reported active")
	}

	notYet := Delegation{Expiry: 2000, NotBefore: 1500}
	if notYet.Active(now) {
		t.Error("not-yet-valid delegation reported active")
	}
	if !notYet.Active(time.Unix(1500, 0)) {
		t.Error("delegation at NotBefore reported inactive")
	}

	revoked := Delegation{Expiry: 2000, Revoked: true}
	if revoked.Active(now) {
		t.Error("revoked delegation reported active")
	}
}

func TestPathCovers(t *testing.T) {
	cases := []struct {
		prefix string
		path   string
		want   bool
	}{
		{"", "anything/at/all", true},
		{"shared/", "shared/doc.json", true},
		{"shared/", "shared/", true},
		{"shared", "shared", true},
		{"shared", "shared/doc.json", true},
		{"shared/", "other/doc.json", false},
		{"shared", "shared-notes/doc.json", false},
		{"shared/photos/", "shared/photos/2026/a.jpg", true},
		{"shared/photos/", "shared/doc.json", false},
	}

	for _, c := range cases {
		if got := PathCovers(c.prefix, c.path); got != c.want {
			t.Errorf("PathCovers(%q, %q) = %v, want %v", c.prefix, c.path, got, c.want)
		}
	}
}

func TestClampNeverWidens(t *testing.T) {
	parent := Delegation{
		Path:    "shared/",
		Actions: []string{"kv/get", "kv/put"},
		Expiry:  1000000,
	}

	// The holder asks for more actions and a longer expiry than it
	// has. Everything is clamped, nothing rejected.
	path, actions, expiry := Clamp("shared/", []string{"kv/get", "kv/put", "kv/del"}, 2000000, parent)

	if path != "shared/" {
		t.Errorf("path = %q", path)
	}
	if len(actions) != 2 || actions[0] != "kv/get" || actions[1] != "kv/put" {
		t.Errorf("actions = %v, want [kv/get kv/put]", actions)
	}
	if expiry != 1000000 {
		t.Errorf("expiry = %d, want clamped to parent's 1000000", expiry)
	}
}

func TestClampPathEscape(t *testing.T) {
	parent := Delegation{
		Path:    "shared/",
		Actions: []string{"kv/get"},
		Expiry:  1000000,
	}

	path, _, _ := Clamp("other/", []string{"kv/get"}, 500000, parent)
	if path != "shared/" {
		t.Errorf("escaping path = %q, want collapsed to parent path", path)
	}

	// Narrowing inside the parent scope is preserved.
	path, _, _ = Clamp("shared/photos/", []string{"kv/get"}, 500000, parent)
	if path != "shared/photos/" {
		t.Errorf("narrowed path = %q, want shared/photos/", path)
	}
}

func TestClampZeroExpiryMeansParentExpiry(t *testing.T) {
	parent := Delegation{Actions: []string{"kv/get"}, Expiry: 777}
	_, _, expiry := Clamp("", []string{"kv/get"}, 0, parent)
	if expiry != 777 {
		t.Errorf("expiry = %d, want parent's 777", expiry)
	}
}
