// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Delegation IDs are BLAKE3
// hashes of encoded payloads, so the encoding must be byte-stable
// across processes and versions.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
// Unknown fields are silently ignored for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Tessera never uses non-string map keys. When the decoder's
		// target is any (e.g., extra fields on a capability), it must
		// pick a concrete Go map type. The CBOR default is
		// map[interface{}]interface{}, which is incompatible with
		// encoding/json and most Go code expecting map[string]any.
		// Struct field decoding is unaffected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder is a CBOR stream encoder. Type alias so consumers import
// only lib/codec, not fxamacker/cbor directly.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder. Type alias so consumers import
// only lib/codec, not fxamacker/cbor directly.
type Decoder = cbor.Decoder

// RawMessage is a raw encoded CBOR value, used to delay decoding or
// pre-encode output.
type RawMessage = cbor.RawMessage

// NewEncoder returns a CBOR encoder that writes to w using Tessera's
// standard Core Deterministic Encoding configuration.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR decoder that reads from r using Tessera's
// standard decoding configuration.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for the
// entire contents of data. Used by the CLI to dump opaque delegation
// payloads when inspecting portable envelopes.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
