// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package peer tracks the live connections of one board session.
//
// A [Registry] maps remote peer ids to [Connection] values, each a
// [transport.Channel] plus the remote peer's [Role]. Registering an id
// that is already present replaces the entry and closes the replaced
// channel. Iteration ([Registry.ForEachOpen], [Registry.Broadcast])
// copies the open connections under the lock and calls out after
// releasing it, so callbacks may use the registry and channels never
// run under the registry mutex.
//
// A Registry is an explicit instance owned by its session; nothing in
// this package is process-global.
package peer
