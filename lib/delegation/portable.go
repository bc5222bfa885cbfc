// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"encoding/base64"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/tessera-works/tessera/lib/codec"
)

// Portable is a delegation prepared for out-of-band transport: the
// grant itself, the proof chain backing it, and the metadata the
// recipient needs to reach the space.
type Portable struct {
	// Delegation is the grant being transported. Its Delegate is the
	// DID of the intended recipient session key.
	Delegation Delegation `cbor:"1,keyasint"`

	// Ancestors is the proof chain above the delegation, root first.
	// Empty when the delegation is itself a root.
	Ancestors []Delegation `cbor:"2,keyasint,omitempty"`

	// AuthorizationHeader is the pre-encoded Authorization header
	// value for the remote service, produced by the signing engine.
	AuthorizationHeader string `cbor:"3,keyasint"`

	// OwnerAddress is the wallet address that owns the space.
	OwnerAddress string `cbor:"4,keyasint"`

	// ChainID is the EIP-155 chain the owning wallet is bound to.
	ChainID uint64 `cbor:"5,keyasint"`

	// Host is the remote service endpoint for the space.
	Host string `cbor:"6,keyasint"`
}

// Chain returns the full delegation chain carried by the envelope,
// root first, ending at the transported delegation.
func (p Portable) Chain() []Delegation {
	chain := make([]Delegation, 0, len(p.Ancestors)+1)
	chain = append(chain, p.Ancestors...)
	return append(chain, p.Delegation)
}

// Shared zstd coders. Both are stateless in the EncodeAll/DecodeAll
// form and safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic("delegation: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("delegation: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode serializes a Portable envelope to a compact string safe for
// embedding in a URL query parameter: deterministic CBOR, zstd
// compression, unpadded base64url. Decode inverts it without loss of
// any delegation or transport field.
func Encode(p Portable) (string, error) {
	payload, err := codec.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("delegation: encoding portable envelope: %w", err)
	}
	compressed := zstdEncoder.EncodeAll(payload, nil)
	return base64.RawURLEncoding.EncodeToString(compressed), nil
}

// Decode parses a string produced by Encode.
func Decode(encoded string) (Portable, error) {
	var p Portable

	compressed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return p, fmt.Errorf("delegation: decoding base64url envelope: %w", err)
	}
	payload, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return p, fmt.Errorf("delegation: decompressing envelope: %w", err)
	}
	if err := codec.Unmarshal(payload, &p); err != nil {
		return p, fmt.Errorf("delegation: decoding portable envelope: %w", err)
	}
	return p, nil
}
