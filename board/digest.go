// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package board

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/rianders/sticky-knowledge/lib/codec"
)

// Digest is a BLAKE3 hash of a board's canonical encoding.
type Digest [32]byte

// String returns the first 12 hex characters, enough to tell boards
// apart in logs and the CLI.
func (d Digest) String() string {
	return hex.EncodeToString(d[:6])
}

// Digest hashes the normalized board. Two peers whose boards have
// equal digests hold the same notes, placements and ordering. The
// encoding is deterministic CBOR, so map iteration order does not
// affect the result.
func (s State) Digest() Digest {
	normalized := s.Clone()
	normalized.Normalize()

	data, err := codec.Marshal(normalized)
	if err != nil {
		// State contains only strings, slices and string-keyed maps.
		panic("board: encoding state for digest: " + err.Error())
	}
	return Digest(blake3.Sum256(data))
}
