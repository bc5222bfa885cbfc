// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/tessera-works/tessera/lib/codec"
)

// Delegation is an immutable, signed grant of a scoped capability.
// All fields except Revoked are fixed at creation; Revoked is advisory
// local metadata set by the issuer (see the package comment).
type Delegation struct {
	// ID is the content-derived identifier, computed by ComputeID.
	ID string `cbor:"1,keyasint,omitempty"`

	// Delegator is the DID of the granting identity: the space
	// owner's wallet DID for a root delegation, or a session key DID
	// for a sub-delegation.
	Delegator string `cbor:"2,keyasint"`

	// Delegate is the DID of the recipient, typically a session
	// key's public identity.
	Delegate string `cbor:"3,keyasint"`

	// Path is the hierarchical resource path this grant is scoped
	// to, e.g. "shared/". An empty path grants the whole space.
	Path string `cbor:"4,keyasint,omitempty"`

	// Actions are the permitted action names, e.g. "kv/get".
	Actions []string `cbor:"5,keyasint"`

	// Expiry is the Unix timestamp (seconds) after which the grant
	// is no longer valid.
	Expiry int64 `cbor:"6,keyasint"`

	// NotBefore is an optional Unix timestamp (seconds) before which
	// the grant is not yet valid. Zero means immediately valid.
	NotBefore int64 `cbor:"7,keyasint,omitempty"`

	// ParentID references the delegation this one was derived from.
	// Empty for a root delegation, which must be issued directly by
	// the space's wallet-bound identity.
	ParentID string `cbor:"8,keyasint,omitempty"`

	// Revoked marks the grant as revoked by its issuer. Advisory:
	// an already-distributed delegation stays structurally valid
	// until Expiry, and only local selection honors this flag.
	Revoked bool `cbor:"9,keyasint,omitempty"`

	// Proof is the opaque signature material produced by the signing
	// engine. Never inspected by this package.
	Proof []byte `cbor:"10,keyasint,omitempty"`
}

// ErrInvalidChain reports a delegation chain that violates the
// parent/child invariants. Resolved locally, never sent on the wire.
var ErrInvalidChain = errors.New("delegation: invalid chain")

// idDomainKey is the 32-byte BLAKE3 key for delegation IDs. The bytes
// are the ASCII domain name zero-padded to 32 bytes, readable in hex
// dumps without weakening the keyed hash.
var idDomainKey = [32]byte{
	't', 'e', 's', 's', 'e', 'r', 'a', '.',
	'd', 'e', 'l', 'e', 'g', 'a', 't', 'i', 'o', 'n',
}

// ComputeID returns the content-derived identifier of a delegation:
// hex-encoded BLAKE3 keyed hash of the deterministic CBOR encoding
// with ID, Revoked, and Proof cleared and actions sorted. Action order
// does not change the identity of a grant.
func ComputeID(d Delegation) (string, error) {
	stripped := d
	stripped.ID = ""
	stripped.Revoked = false
	stripped.Proof = nil
	stripped.Actions = append([]string(nil), d.Actions...)
	sort.Strings(stripped.Actions)

	payload, err := codec.Marshal(stripped)
	if err != nil {
		return "", err
	}

	hasher, err := blake3.NewKeyed(idDomainKey[:])
	if err != nil {
		panic("delegation: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// IsRoot reports whether the delegation has no parent.
func (d Delegation) IsRoot() bool { return d.ParentID == "" }

// Active reports whether the delegation is within its validity window
// at the given time and not locally marked revoked.
func (d Delegation) Active(now time.Time) bool {
	if d.Revoked {
		return false
	}
	seconds := now.Unix()
	if seconds >= d.Expiry {
		return false
	}
	if d.NotBefore != 0 && seconds < d.NotBefore {
		return false
	}
	return true
}

// HasAction reports whether the action appears in the delegation's
// action set. Action names are exact; there is no pattern matching.
func (d Delegation) HasAction(action string) bool {
	for _, a := range d.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// PathCovers reports whether a grant scoped to prefix reaches the
// requested path. Coverage is segment-aware: "shared" covers "shared"
// and "shared/doc.json" but not "shared-notes". An empty prefix
// covers every path (whole-space grant).
func PathCovers(prefix, path string) bool {
	if prefix == "" || prefix == path {
		return true
	}
	if strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(path, prefix)
	}
	return strings.HasPrefix(path, prefix+"/")
}

// Clamp narrows a requested grant to fit inside what the parent
// holds. The result never widens the parent: actions are intersected
// (preserving requested order), expiry is capped at the parent's, and
// a path escaping the parent scope collapses to the parent path.
// Over-asking is not an error — the issuer simply grants what it has.
func Clamp(path string, actions []string, expiry int64, parent Delegation) (string, []string, int64) {
	clampedPath := path
	if !PathCovers(parent.Path, path) {
		clampedPath = parent.Path
	}

	clampedActions := make([]string, 0, len(actions))
	for _, action := range actions {
		if parent.HasAction(action) {
			clampedActions = append(clampedActions, action)
		}
	}

	clampedExpiry := expiry
	if clampedExpiry == 0 || clampedExpiry > parent.Expiry {
		clampedExpiry = parent.Expiry
	}

	return clampedPath, clampedActions, clampedExpiry
}
