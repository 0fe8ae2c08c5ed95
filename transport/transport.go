// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "context"

// Dialer opens a connection by offering it: the host side of an
// invite. The returned Channel is open.
type Dialer interface {
	Dial(ctx context.Context, room, localPeer string) (Channel, error)
}

// Acceptor opens a connection by answering an offer: the joining side.
// The returned Channel is open.
type Acceptor interface {
	Accept(ctx context.Context, room, localPeer string) (Channel, error)
}

// Compile-time interface checks.
var (
	_ Dialer   = (*WebRTCTransport)(nil)
	_ Acceptor = (*WebRTCTransport)(nil)
)
