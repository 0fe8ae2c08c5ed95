// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/rianders/sticky-knowledge/lib/netutil"
)

// dataChannel is a Channel over one pion data channel. It owns the
// PeerConnection the data channel rides on: a board connection is one
// PeerConnection carrying one data channel, and closing either closes
// both.
type dataChannel struct {
	*endpoint
	connection *webrtc.PeerConnection
	logger     *slog.Logger

	channelMu sync.Mutex
	channel   *webrtc.DataChannel

	// opened is closed when the data channel opens; done when the
	// channel reaches Closed. Handshakes wait on both.
	opened     chan struct{}
	openedOnce sync.Once
	done       chan struct{}
	closed     atomic.Bool
}

// Compile-time interface check.
var _ Channel = (*dataChannel)(nil)

func newDataChannel(peerID string, connection *webrtc.PeerConnection, logger *slog.Logger) *dataChannel {
	channel := &dataChannel{
		endpoint:   newEndpoint(peerID),
		connection: connection,
		logger:     logger.With("peer", peerID),
		opened:     make(chan struct{}),
		done:       make(chan struct{}),
	}

	connection.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		channel.logger.Debug("peer connection state change", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			// pion may invoke this from inside PeerConnection.Close.
			go channel.Close()
		}
	})
	return channel
}

// attach binds the pion data channel and its callbacks. Called once,
// before the channel can open.
func (c *dataChannel) attach(channel *webrtc.DataChannel) {
	c.channelMu.Lock()
	c.channel = channel
	c.channelMu.Unlock()

	channel.OnOpen(func() {
		if c.transition(StateOpen) {
			c.logger.Info("data channel open", "label", channel.Label())
		}
		c.openedOnce.Do(func() { close(c.opened) })
	})
	channel.OnMessage(func(message webrtc.DataChannelMessage) {
		c.deliver(message.Data)
	})
	channel.OnClose(func() {
		go c.Close()
	})
}

// Send transmits data as a text message, the form browser peers
// produce and expect for JSON payloads.
func (c *dataChannel) Send(data []byte) error {
	switch c.State() {
	case StateClosed:
		return ErrChannelClosed
	case StateConnecting:
		return ErrChannelNotOpen
	}

	c.channelMu.Lock()
	channel := c.channel
	c.channelMu.Unlock()

	if err := channel.SendText(string(data)); err != nil {
		if c.State() == StateClosed {
			return ErrChannelClosed
		}
		return fmt.Errorf("sending to %s: %w", c.PeerID(), err)
	}
	return nil
}

// Close closes the data channel and its PeerConnection. Only the
// first call does anything.
func (c *dataChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.transition(StateClosed)
	close(c.done)

	c.channelMu.Lock()
	channel := c.channel
	c.channelMu.Unlock()
	if channel != nil {
		if err := channel.Close(); err != nil && !netutil.IsExpectedCloseError(err) {
			c.logger.Warn("closing data channel", "error", err)
		}
	}
	err := c.connection.Close()
	if netutil.IsExpectedCloseError(err) {
		err = nil
	}
	c.logger.Info("data channel closed")
	return err
}
