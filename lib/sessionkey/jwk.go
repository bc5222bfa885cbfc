// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package sessionkey

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// jwk is the minimal OKP/Ed25519 JWK (RFC 8037) shape used for key
// import and export. JSON because JWK is a JSON format by definition
// — the one exception to the CBOR-everywhere rule.
type jwk struct {
	KeyType    string `json:"kty"`
	Curve      string `json:"crv"`
	PublicKey  string `json:"x"`
	PrivateKey string `json:"d,omitempty"`
	KeyID      string `json:"kid,omitempty"`
}

// ExportJWK returns the named key as an OKP/Ed25519 JWK JSON document
// including the private scalar. The caller owns safe handling of the
// output.
func (m *Manager) ExportJWK(keyID string) ([]byte, error) {
	private, err := m.private(keyID)
	if err != nil {
		return nil, err
	}
	if keyID == "" {
		keyID = DefaultKeyID
	}

	public := private.Public().(ed25519.PublicKey)
	document := jwk{
		KeyType:    "OKP",
		Curve:      "Ed25519",
		PublicKey:  base64.RawURLEncoding.EncodeToString(public),
		PrivateKey: base64.RawURLEncoding.EncodeToString(private.Seed()),
		KeyID:      keyID,
	}
	return json.Marshal(document)
}

// Import parses an OKP/Ed25519 JWK JSON document and stores the key
// under keyID (empty means DefaultKeyID). With override false, an
// existing key under that ID is an ErrKeyExists error. Returns the
// key ID used.
func (m *Manager) Import(jwkJSON []byte, keyID string, override bool) (string, error) {
	var document jwk
	if err := json.Unmarshal(jwkJSON, &document); err != nil {
		return "", fmt.Errorf("sessionkey: invalid JWK format: %w", err)
	}
	if document.KeyType != "OKP" || document.Curve != "Ed25519" {
		return "", fmt.Errorf("sessionkey: unsupported JWK key type %s/%s, want OKP/Ed25519",
			document.KeyType, document.Curve)
	}
	if document.PrivateKey == "" {
		return "", fmt.Errorf("sessionkey: JWK has no private scalar")
	}

	seed, err := base64.RawURLEncoding.DecodeString(document.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sessionkey: decoding JWK private scalar: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return "", fmt.Errorf("sessionkey: JWK private scalar is %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	private := ed25519.NewKeyFromSeed(seed)

	// If the document carries a public half, it must match the
	// private scalar — a mismatch means a corrupted or tampered key.
	if document.PublicKey != "" {
		public, err := base64.RawURLEncoding.DecodeString(document.PublicKey)
		if err != nil {
			return "", fmt.Errorf("sessionkey: decoding JWK public key: %w", err)
		}
		if !ed25519.PublicKey(public).Equal(private.Public()) {
			return "", fmt.Errorf("sessionkey: JWK public key does not match private scalar")
		}
	}

	if keyID == "" && document.KeyID != "" {
		keyID = document.KeyID
	}
	return m.insert(keyID, private, override)
}
