// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests that wait on peers (a snapshot arriving, a channel
// opening) fail with a message instead of hanging. They are the only
// place tests use a wall-clock timeout.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as note texts that must be told apart after a
// snapshot round trip.
//
// All helpers call t.Fatalf on failure.
package testutil
