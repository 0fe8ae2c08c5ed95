// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session ties a room, its connections and its board together.
//
// The directory half names rooms: [CreateSession] mints a fresh room id
// for a host, [ResolveSession] accepts one from a link for a
// participant. Room ids are lowercase base32 carrying 60 random bits,
// which keeps links short while making guessing impractical. No lookup
// service exists; the link is the directory.
//
// A [Session] owns the [peer.Registry] and [statesync.Synchronizer] for
// one room. [Session.Attach] adopts an open channel and routes its
// events to the synchronizer. [Session.Invite] and [Session.Join] run a
// transport handshake and attach the result. Closing the session closes
// every channel and cancels handshakes still in flight.
package session
