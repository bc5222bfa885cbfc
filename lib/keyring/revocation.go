// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"sync"
	"time"
)

// revocationEntry tracks a revoked delegation ID and the delegation's
// natural expiry. Once the expiry has passed, keeping the entry is
// unnecessary — selection rejects expired delegations regardless.
type revocationEntry struct {
	expiresAt time.Time
}

// RevocationSet is a thread-safe set of revoked delegation IDs with
// expiry-based cleanup. Revocation is advisory: it filters local
// selection and is honored by the issuer's own services, but an
// already-distributed delegation remains structurally valid until its
// expiry elapses. That trust boundary is inherent to offline
// delegation, not a defect to patch here.
type RevocationSet struct {
	mu      sync.RWMutex
	entries map[string]revocationEntry
}

// NewRevocationSet creates an empty revocation set.
func NewRevocationSet() *RevocationSet {
	return &RevocationSet{
		entries: make(map[string]revocationEntry),
	}
}

// Revoke adds a delegation ID to the set. expiresAt is the
// delegation's natural expiry; the entry is dropped after it during
// Cleanup.
func (s *RevocationSet) Revoke(delegationID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[delegationID] = revocationEntry{expiresAt: expiresAt}
}

// IsRevoked reports whether a delegation ID has been revoked.
func (s *RevocationSet) IsRevoked(delegationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.entries[delegationID]
	return exists
}

// Cleanup removes entries whose delegation has naturally expired.
// Call periodically to keep the set bounded. Returns the number
// removed.
func (s *RevocationSet) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the current number of revoked IDs.
func (s *RevocationSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
