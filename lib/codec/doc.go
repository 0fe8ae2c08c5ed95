// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR configuration.
//
// JSON is the format on the wire between peers (the data channel
// envelope and plain signaling tokens), because it is what a browser
// peer speaks. CBOR is used where compactness or canonical bytes matter:
//
//   - compact signaling tokens, where every byte ends up in a URL
//   - the board digest, which hashes a canonical encoding of the state
//
// The encoder uses Core Deterministic Encoding, so equal values always
// produce identical bytes:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types carry `json` tags only. fxamacker/cbor falls back to `json`
// tags when `cbor` tags are absent, so one tag names a field in both
// formats.
package codec
