// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Sticky is a terminal peer for a shared sticky-note board.
//
// "sticky host" creates a room and prints its share link. For each
// person joining, the host runs "invite", which prints an invite link
// carrying a WebRTC offer. The joiner runs "sticky join <invite link>",
// which prints an answer link for the host to paste with "answer".
// Once the data channel opens, the joiner requests the host's board and
// every later edit on either side is broadcast as a full snapshot.
//
// Configuration comes from the file named by --config or $STICKY_CONFIG
// (YAML, or JSONC for .json/.jsonc files), falling back to built-in
// defaults. Logs go to stderr; the board, links and command output go
// to stdout.
package main
