// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrChannelClosed is returned by Send after the channel closed.
	// Callers treat it as a dropped send, not a failure.
	ErrChannelClosed = errors.New("channel closed")

	// ErrChannelNotOpen is returned by Send while the channel is still
	// connecting.
	ErrChannelNotOpen = errors.New("channel not open")

	// ErrHandshakeTimeout is returned when the remote side does not
	// complete a handshake within the configured bound.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrTransportClosed is returned by Dial and Accept after Close.
	ErrTransportClosed = errors.New("transport closed")
)

// State is a channel's connection state. Transitions only move
// forward: Connecting -> Open -> Closed, or Connecting -> Closed when a
// handshake fails. Closed is terminal.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Handler receives a channel's inbound events. A channel calls its
// handler from one goroutine, in order: any state change, then the
// messages that arrived while open, then Closed. Handlers are never
// called from inside Send or Close.
type Handler interface {
	HandleMessage(peerID string, data []byte)
	HandleState(peerID string, state State)
}

// Channel is an ordered, message-oriented link to exactly one remote
// peer.
type Channel interface {
	// PeerID identifies the remote peer.
	PeerID() string

	// State returns the current connection state.
	State() State

	// SetHandler installs the handler for inbound events. Events that
	// occurred before the handler was installed are delivered to it,
	// in order. Call it once.
	SetHandler(handler Handler)

	// Send queues data for delivery and returns without waiting for
	// it to arrive. After Close it returns ErrChannelClosed.
	Send(data []byte) error

	// Close releases the channel. It is idempotent.
	Close() error
}

type eventKind int

const (
	stateEvent eventKind = iota
	messageEvent
)

type event struct {
	kind  eventKind
	state State
	data  []byte
}

// endpoint implements the state machine and ordered handler dispatch
// shared by every Channel implementation. Inbound events are queued
// and delivered by a dedicated goroutine, so the goroutine that
// produced an event (a pion callback, or a Send on the other end of a
// pipe) never runs handler code. The goroutine starts with the first
// SetHandler and exits after delivering Closed; until then events wait
// in the queue.
type endpoint struct {
	peerID string

	mu      sync.Mutex
	wake    *sync.Cond
	state   State
	handler Handler
	queue   []event
}

func newEndpoint(peerID string) *endpoint {
	e := &endpoint{peerID: peerID, state: StateConnecting}
	e.wake = sync.NewCond(&e.mu)
	return e
}

func (e *endpoint) PeerID() string {
	return e.peerID
}

func (e *endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *endpoint) SetHandler(handler Handler) {
	if handler == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handler == nil {
		go e.dispatch()
	}
	e.handler = handler
	e.wake.Broadcast()
}

// transition moves to state if the move is legal and queues the
// change for the handler. Returns false for repeated or backward
// moves.
func (e *endpoint) transition(state State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	legal := (e.state == StateConnecting && state != StateConnecting) ||
		(e.state == StateOpen && state == StateClosed)
	if !legal {
		return false
	}
	e.state = state
	e.queue = append(e.queue, event{kind: stateEvent, state: state})
	e.wake.Broadcast()
	return true
}

// deliver queues an inbound message. Messages arriving outside the
// Open state are dropped.
func (e *endpoint) deliver(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateOpen {
		return
	}
	e.queue = append(e.queue, event{kind: messageEvent, data: data})
	e.wake.Broadcast()
}

func (e *endpoint) dispatch() {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 {
			e.wake.Wait()
		}
		next := e.queue[0]
		e.queue = e.queue[1:]
		handler := e.handler
		e.mu.Unlock()

		switch next.kind {
		case stateEvent:
			handler.HandleState(e.peerID, next.state)
			if next.state == StateClosed {
				return
			}
		case messageEvent:
			handler.HandleMessage(e.peerID, next.data)
		}
	}
}
