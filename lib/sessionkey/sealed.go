// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package sessionkey

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"
)

// GenerateTransferKeypair creates an age x25519 keypair for sealed
// key transfer. The recipient string (age1...) is safe to publish;
// the identity string (AGE-SECRET-KEY-1...) must stay on the
// receiving device.
func GenerateTransferKeypair() (recipient, identity string, err error) {
	generated, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("sessionkey: generating transfer keypair: %w", err)
	}
	return generated.Recipient().String(), generated.String(), nil
}

// ExportSealed encrypts the named key's JWK to one or more age
// recipients and returns standard base64. This is the supported way
// to move a session key to another device: the receiving side calls
// ImportSealed with its transfer identity.
func (m *Manager) ExportSealed(keyID string, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("sessionkey: at least one recipient is required")
	}

	jwkJSON, err := m.ExportJWK(keyID)
	if err != nil {
		return "", err
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("sessionkey: parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return "", fmt.Errorf("sessionkey: creating age encryptor: %w", err)
	}
	if _, err := writer.Write(jwkJSON); err != nil {
		return "", fmt.Errorf("sessionkey: writing sealed key: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("sessionkey: finalizing sealed key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// ImportSealed decrypts a sealed key bundle with the given age
// identity and stores the contained key under keyID (empty keeps the
// bundle's own key ID). Returns the key ID used.
func (m *Manager) ImportSealed(sealed, identityKey, keyID string, override bool) (string, error) {
	identity, err := age.ParseX25519Identity(identityKey)
	if err != nil {
		return "", fmt.Errorf("sessionkey: parsing transfer identity: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("sessionkey: decoding sealed bundle: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return "", fmt.Errorf("sessionkey: decrypting sealed bundle: %w", err)
	}
	jwkJSON, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("sessionkey: reading sealed bundle: %w", err)
	}

	return m.Import(jwkJSON, keyID, override)
}
