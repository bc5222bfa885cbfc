// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionkey manages the locally held Ed25519 session keys a
// client signs with. A Manager holds one or more named keys; the
// default key "default" is generated at construction so a fresh
// session can operate immediately with no network call.
//
// Keys leave the manager in exactly two forms: a plaintext OKP/Ed25519
// JWK (the caller owns the handling) or an age-sealed bundle for
// moving a key between devices.
package sessionkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultKeyID names the key generated at Manager construction.
const DefaultKeyID = "default"

// Errors returned by key operations.
var (
	ErrKeyExists   = errors.New("sessionkey: key already exists")
	ErrKeyNotFound = errors.New("sessionkey: key not found")
)

// Manager holds named Ed25519 session keys. Safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	keys map[string]ed25519.PrivateKey
}

// NewManager creates a Manager holding a freshly generated default
// key.
func NewManager() (*Manager, error) {
	manager := &Manager{keys: make(map[string]ed25519.PrivateKey)}
	if _, err := manager.Create(DefaultKeyID); err != nil {
		return nil, err
	}
	return manager, nil
}

// Create generates a new session key under the given ID. An empty ID
// means DefaultKeyID. Returns the key ID, or ErrKeyExists if the ID
// is taken.
func (m *Manager) Create(keyID string) (string, error) {
	if keyID == "" {
		keyID = DefaultKeyID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.keys[keyID]; exists {
		return "", fmt.Errorf("%w: %q", ErrKeyExists, keyID)
	}

	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("sessionkey: generating key: %w", err)
	}
	m.keys[keyID] = private
	return keyID, nil
}

// Rename moves a key to a new ID. Fails if the old ID is missing or
// the new ID is taken.
func (m *Manager) Rename(oldID, newID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, exists := m.keys[oldID]
	if !exists {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, oldID)
	}
	if _, exists := m.keys[newID]; exists {
		return fmt.Errorf("%w: %q", ErrKeyExists, newID)
	}
	delete(m.keys, oldID)
	m.keys[newID] = key
	return nil
}

// Remove drops a key. Idempotent.
func (m *Manager) Remove(keyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, keyID)
}

// List returns the IDs of all held keys, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.keys))
	for id := range m.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DID returns the public identity of a key as a DID-like string. The
// form is stable SDK-wide: "did:key:ed25519:" followed by the hex
// public key. The signing engine resolves it back to the key when
// verifying.
func (m *Manager) DID(keyID string) (string, error) {
	public, err := m.Public(keyID)
	if err != nil {
		return "", err
	}
	return "did:key:ed25519:" + hex.EncodeToString(public), nil
}

// Public returns the public half of a key.
func (m *Manager) Public(keyID string) (ed25519.PublicKey, error) {
	private, err := m.private(keyID)
	if err != nil {
		return nil, err
	}
	return private.Public().(ed25519.PublicKey), nil
}

// Sign signs a message with the named key.
func (m *Manager) Sign(keyID string, message []byte) ([]byte, error) {
	private, err := m.private(keyID)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(private, message), nil
}

func (m *Manager) private(keyID string) (ed25519.PrivateKey, error) {
	if keyID == "" {
		keyID = DefaultKeyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	private, exists := m.keys[keyID]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}
	return private, nil
}

// insert stores an existing private key under keyID, honoring the
// override flag. Shared by Import and ImportSealed.
func (m *Manager) insert(keyID string, private ed25519.PrivateKey, override bool) (string, error) {
	if keyID == "" {
		keyID = DefaultKeyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.keys[keyID]; exists && !override {
		return "", fmt.Errorf("%w: %q", ErrKeyExists, keyID)
	}
	m.keys[keyID] = private
	return keyID, nil
}
