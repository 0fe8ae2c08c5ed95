// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The session core has exactly one kind of timer: the bound on a
// WebRTC handshake. Code that waits on it takes a Clock instead of
// calling the time package, so tests can expire a handshake without
// sleeping:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go waitForAnswer(fake)
//	fake.WaitForTimers(1)
//	fake.Advance(handshakeTimeout)
package clock
