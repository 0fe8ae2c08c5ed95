// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the peer-to-peer links a board is shared
// over.
//
// A [Channel] is an ordered, message-oriented link to one remote peer.
// Its [State] moves forward only: Connecting, Open, Closed. Inbound
// messages and state changes go to a single [Handler], delivered in
// order from a goroutine owned by the channel, never from inside Send
// or Close. Send is fire-and-forget and returns [ErrChannelClosed]
// once the channel is gone.
//
// The production implementation, [WebRTCTransport], uses pion/webrtc
// data channels labelled "stateSync" with ICE/STUN/TURN for NAT
// traversal. [WebRTCTransport.Dial] is the offering side (a host
// inviting someone) and [WebRTCTransport.Accept] the answering side (a
// participant joining). Each connection is one PeerConnection carrying
// one ordered data channel; retransmission of lost messages is
// configurable. A handshake that does not complete within the
// configured bound fails with [ErrHandshakeTimeout] and its
// PeerConnection is closed. [Dialer] and [Acceptor] are the narrow
// interfaces the session layer depends on.
//
// Signaling is abstracted behind the [Signaler] interface. Connection
// establishment uses vanilla ICE: all candidates are gathered before a
// description is published, so one offer and one answer suffice.
// [LinkSignaler] writes those descriptions as board links for a person
// to carry and takes pasted links back through Deliver.
// [MemorySignaler] provides an in-process implementation for tests,
// passing encoded tokens exactly as links would carry them.
//
// [Pipe] returns a connected pair of in-process channels, used by tests
// and for running several peers in one process.
//
// [ICEConfig] holds STUN/TURN server configuration built from config
// URLs by [ICEConfigFromURLs].
package transport
