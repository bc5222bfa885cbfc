// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Tessera's standard CBOR encoding configuration.
//
// Tessera uses two serialization formats with a clear boundary:
//
//   - CBOR for everything that is signed, hashed, or persisted:
//     delegation payloads, portable delegation envelopes, and the
//     on-disk session state file. Delegation IDs are content-derived,
//     so the encoder must be deterministic.
//   - JSON only for JWK session-key export (the JWK format is JSON by
//     definition) and YAML only for configuration files.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes — a delegation
// re-encoded anywhere hashes to the same ID.
//
// For buffer-oriented operations (tokens, state files):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// # Struct Tag Rules
//
// Types that are only ever CBOR (delegations, envelopes, state files)
// use `cbor:"N,keyasint"` tags for compact, order-stable encoding.
// Never mix `cbor` and `json` tags on the same field — the tag choice
// documents which serialization a type participates in.
package codec
