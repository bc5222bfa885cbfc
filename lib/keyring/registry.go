// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"fmt"
	"sync"
	"time"

	"github.com/tessera-works/tessera/lib/delegation"
)

// entry is one registered session key with its backing chain.
type entry struct {
	keyDID string
	chain  []delegation.Delegation
}

// Selection is the result of a successful key lookup: the key to sign
// with and the chain that authorizes it.
type Selection struct {
	// KeyID identifies the locally held signing key.
	KeyID string

	// KeyDID is the public identity of the key, equal to the
	// terminal delegation's Delegate.
	KeyDID string

	// Chain is the authorizing chain, root first. A deep copy — the
	// caller may not mutate registry state through it.
	Chain []delegation.Delegation
}

// Terminal returns the selection's terminal delegation, whose scope
// bounds what the key may do.
func (s Selection) Terminal() delegation.Delegation {
	return delegation.Terminal(s.Chain)
}

// Registry maps session key IDs to validated delegation chains and
// supports concurrent reads with single-writer updates. Reads
// (KeyForCapability, Chain) take a read lock; writes (RegisterKey,
// RemoveKey) take a write lock. Lookups happen on every storage
// operation; registration is rare.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]entry
	revocable *RevocationSet
}

// NewRegistry creates an empty registry with its own revocation set.
func NewRegistry() *Registry {
	return &Registry{
		entries:   make(map[string]entry),
		revocable: NewRevocationSet(),
	}
}

// RegisterKey validates the chain invariants and records the chain as
// the authorization for keyID, replacing any prior chain wholesale.
// The terminal delegation's Delegate must equal keyDID — a chain that
// terminates at some other identity cannot authorize this key.
// Returns an error wrapping delegation.ErrInvalidChain on any
// violation.
func (r *Registry) RegisterKey(keyID, keyDID string, chain []delegation.Delegation) error {
	if err := delegation.ValidateChain(chain); err != nil {
		return err
	}
	terminal := delegation.Terminal(chain)
	if terminal.Delegate != keyDID {
		return fmt.Errorf("%w: terminal delegate %s does not match key identity %s",
			delegation.ErrInvalidChain, terminal.Delegate, keyDID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[keyID] = entry{
		keyDID: keyDID,
		chain:  delegation.CopyChain(chain),
	}
	return nil
}

// RemoveKey removes the entry for keyID if present. Idempotent.
func (r *Registry) RemoveKey(keyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, keyID)
}

// RemoveKeysFor removes every entry whose key identity is keyDID,
// regardless of the ID it was registered under. Returns the number
// removed. Used at sign-out, where all chains held for a session key
// must go at once.
func (r *Registry) RemoveKeysFor(keyDID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for keyID, e := range r.entries {
		if e.keyDID == keyDID {
			delete(r.entries, keyID)
			removed++
		}
	}
	return removed
}

// Chain returns a deep copy of the chain registered for keyID.
func (r *Registry) Chain(keyID string) ([]delegation.Delegation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[keyID]
	if !ok {
		return nil, false
	}
	return delegation.CopyChain(e.chain), true
}

// KeyForCapability returns the most specific valid key for an action
// on a path at the given time, per the selection rule in the package
// comment. The second return is false when no registered key covers
// the request — authorization required, not a fault.
func (r *Registry) KeyForCapability(path, action string, now time.Time) (Selection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		bestID    string
		bestEntry entry
		found     bool
	)

	for keyID, e := range r.entries {
		terminal := delegation.Terminal(e.chain)
		if !terminal.Active(now) {
			continue
		}
		if r.revocable.IsRevoked(terminal.ID) {
			continue
		}
		if !terminal.HasAction(action) {
			continue
		}
		if !delegation.PathCovers(terminal.Path, path) {
			continue
		}

		if !found || betterMatch(terminal, delegation.Terminal(bestEntry.chain), keyID, bestID) {
			bestID = keyID
			bestEntry = e
			found = true
		}
	}

	if !found {
		return Selection{}, false
	}
	return Selection{
		KeyID:  bestID,
		KeyDID: bestEntry.keyDID,
		Chain:  delegation.CopyChain(bestEntry.chain),
	}, true
}

// Revoke marks a delegation ID as revoked until its natural expiry,
// after which the entry is garbage-collected (an expired delegation
// is rejected by selection regardless).
func (r *Registry) Revoke(delegationID string, expiresAt time.Time) {
	r.revocable.Revoke(delegationID, expiresAt)
}

// IsRevoked reports whether a delegation ID is in the revocation set.
func (r *Registry) IsRevoked(delegationID string) bool {
	return r.revocable.IsRevoked(delegationID)
}

// Cleanup drops revocation entries whose delegation has expired.
// Returns the number removed.
func (r *Registry) Cleanup(now time.Time) int {
	return r.revocable.Cleanup(now)
}

// betterMatch decides whether candidate should replace current as the
// selection. Longest terminal path wins; ties by latest expiry; a
// final tie on the key ID keeps selection deterministic regardless of
// map iteration order.
func betterMatch(candidate, current delegation.Delegation, candidateKey, currentKey string) bool {
	if len(candidate.Path) != len(current.Path) {
		return len(candidate.Path) > len(current.Path)
	}
	if candidate.Expiry != current.Expiry {
		return candidate.Expiry > current.Expiry
	}
	return candidateKey < currentKey
}
