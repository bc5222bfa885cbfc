// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import "fmt"

// ValidateChain checks the structural invariants of a delegation
// chain ordered root-first. It returns nil if every link holds, or an
// error wrapping ErrInvalidChain naming the first violation:
//
//   - the chain is non-empty and starts at a root delegation
//   - each link's ParentID references the preceding delegation
//   - each child's expiry does not exceed its parent's
//   - each child's actions are a subset of its parent's
//   - each child's path is the parent path or nested under it
//
// No cryptographic verification happens here — Proof bytes are
// trusted to have been verified by the signing engine when the
// delegation was created or decoded.
func ValidateChain(chain []Delegation) error {
	if len(chain) == 0 {
		return fmt.Errorf("%w: empty chain", ErrInvalidChain)
	}
	if !chain[0].IsRoot() {
		return fmt.Errorf("%w: first delegation %s has parent %s, want a root delegation",
			ErrInvalidChain, shortID(chain[0].ID), shortID(chain[0].ParentID))
	}

	for i := 1; i < len(chain); i++ {
		parent := chain[i-1]
		child := chain[i]

		if child.ParentID != parent.ID {
			return fmt.Errorf("%w: delegation %s has parent %s, want %s (non-contiguous chain)",
				ErrInvalidChain, shortID(child.ID), shortID(child.ParentID), shortID(parent.ID))
		}
		if child.Expiry > parent.Expiry {
			return fmt.Errorf("%w: delegation %s expiry %d exceeds parent expiry %d",
				ErrInvalidChain, shortID(child.ID), child.Expiry, parent.Expiry)
		}
		for _, action := range child.Actions {
			if !parent.HasAction(action) {
				return fmt.Errorf("%w: delegation %s action %q not held by parent",
					ErrInvalidChain, shortID(child.ID), action)
			}
		}
		if !PathCovers(parent.Path, child.Path) {
			return fmt.Errorf("%w: delegation %s path %q escapes parent path %q",
				ErrInvalidChain, shortID(child.ID), child.Path, parent.Path)
		}
	}

	return nil
}

// Terminal returns the last delegation of a chain. Panics on an empty
// chain — callers validate first.
func Terminal(chain []Delegation) Delegation {
	if len(chain) == 0 {
		panic("delegation: Terminal on empty chain")
	}
	return chain[len(chain)-1]
}

// CopyChain returns a deep copy of a chain. Inner slices are copied
// so the caller cannot mutate the original.
func CopyChain(chain []Delegation) []Delegation {
	if chain == nil {
		return nil
	}
	result := make([]Delegation, len(chain))
	for i, d := range chain {
		result[i] = d
		if d.Actions != nil {
			result[i].Actions = append([]string(nil), d.Actions...)
		}
		if d.Proof != nil {
			result[i].Proof = append([]byte(nil), d.Proof...)
		}
	}
	return result
}

// shortID abbreviates a delegation ID for error messages. Full
// 64-character IDs make errors unreadable; 12 hex characters match
// the display convention used across the SDK.
func shortID(id string) string {
	if id == "" {
		return "(none)"
	}
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
