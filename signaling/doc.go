// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package signaling turns WebRTC connection-setup data into tokens that
// can be pasted into a link and back.
//
// A [Description] carries one side of a handshake: the complete SDP
// (vanilla ICE, so all candidates are already gathered), the candidate
// lines pulled out of it, the room, the handshake session identifier
// and the sending peer's id. [Encode] produces a token for a query
// parameter value; [Decode] reverses it.
//
// Two token forms exist. The plain form is percent-escaped JSON, which
// is what a browser peer produces with
// encodeURIComponent(JSON.stringify(description)). The compact form,
// selected with [Codec].Compression, is "<tag>." followed by unpadded
// base64url of CBOR, optionally LZ4 or zstd compressed. SDP text
// compresses well, and links pasted into chat clients are happier
// short. [Decode] detects the form, so a peer can read any token
// regardless of its own setting.
//
// Decode never guesses: a token that does not parse, or parses but
// lacks a required field, fails with [ErrMalformedToken], because no
// connection can be formed from it.
//
// This package performs no I/O.
package signaling
