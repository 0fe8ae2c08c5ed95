// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statesync keeps a board consistent across the peers of a
// session.
//
// The protocol is full-snapshot, last-snapshot-wins. Every local
// mutation ([Synchronizer.AddNote], [Synchronizer.Categorize]) updates
// the local [board.State] and broadcasts the whole state to every open
// connection. A received snapshot that passes validation replaces the
// local state wholesale; nothing is merged. Two peers mutating at the
// same moment can therefore lose one of the edits, and the peers may
// disagree until the next mutation. That is the documented behavior,
// not a bug; a merge-capable state type would slot in at
// [Synchronizer.HandleMessage].
//
// Sessions are star-shaped around the host. A participant pulls the
// host's state with a requestState message when its first connection
// opens; the host answers by unicast and never pushes on connect. The
// host forwards every snapshot it accepts to its other participants,
// which is how participants see each other's edits. Participants never
// forward.
//
// Messages are JSON objects discriminated by a "type" field (see
// [Encode] and [Decode]). Unknown types and malformed payloads are
// logged and ignored; no inbound message can stop a session.
package statesync
