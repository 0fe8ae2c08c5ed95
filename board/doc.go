// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package board defines the shared state every peer replicates: notes,
// the four fixed quadrant categories, and the entries placing notes
// into quadrants.
//
// [State] is a plain value with no locking. The statesync package owns
// the one live copy per peer and serializes access to it; everything
// else works on clones.
//
// A note may sit in several quadrants at once. Its Categories field is
// a projection of the board kept consistent by [State.Categorize] and
// recomputed by [State.Normalize] for snapshots received from peers.
// [State.Validate] checks both invariants: every entry refers to a
// known note, and every note's categories match the quadrants it
// appears in.
package board
