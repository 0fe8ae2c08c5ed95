// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

// PipeChannel is one end of an in-process channel pair created by Pipe.
type PipeChannel struct {
	*endpoint
	remote *PipeChannel
}

// Compile-time interface check.
var _ Channel = (*PipeChannel)(nil)

// Pipe returns two connected channels. The first is held by peer
// first and reaches second (its PeerID is second); the other is the
// reverse. Both are Open when Pipe returns. Delivery is ordered and
// lossless, with no network involved, which makes pipes the transport
// for tests and for embedding several peers in one process.
func Pipe(first, second string) (*PipeChannel, *PipeChannel) {
	firstEnd := &PipeChannel{endpoint: newEndpoint(second)}
	secondEnd := &PipeChannel{endpoint: newEndpoint(first)}
	firstEnd.remote = secondEnd
	secondEnd.remote = firstEnd

	firstEnd.transition(StateOpen)
	secondEnd.transition(StateOpen)
	return firstEnd, secondEnd
}

// Send delivers a copy of data to the other end.
func (p *PipeChannel) Send(data []byte) error {
	switch p.State() {
	case StateClosed:
		return ErrChannelClosed
	case StateConnecting:
		return ErrChannelNotOpen
	}
	p.remote.deliver(append([]byte(nil), data...))
	return nil
}

// Close closes both ends. Closing either end again, or the other end,
// is a no-op.
func (p *PipeChannel) Close() error {
	p.transition(StateClosed)
	p.remote.transition(StateClosed)
	return nil
}
