// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rianders/sticky-knowledge/board"
	"github.com/rianders/sticky-knowledge/peer"
	"github.com/rianders/sticky-knowledge/statesync"
	"github.com/rianders/sticky-knowledge/transport"
)

var (
	// ErrClosed is returned by operations on a closed Session.
	ErrClosed = errors.New("session closed")

	// ErrWrongRole is returned by Invite on a participant and Join on a
	// host.
	ErrWrongRole = errors.New("operation not available in this role")
)

// Options configures a Session.
type Options struct {
	// PeerID identifies the local peer. Empty means NewPeerID().
	PeerID string

	// OnStateChanged receives a copy of the board after every change.
	// See statesync.Options.OnStateChanged for the calling rules.
	OnStateChanged func(board.State)

	// Seed lists starter notes for a new host board.
	Seed []string

	Logger *slog.Logger
}

// Session is one peer's membership in one room.
type Session struct {
	descriptor Descriptor
	peerID     string
	logger     *slog.Logger

	registry     *peer.Registry
	synchronizer *statesync.Synchronizer

	// ctx is cancelled by Close and bounds every handshake.
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates a session for descriptor. Hosts start with the seed
// notes on the board.
func New(descriptor Descriptor, options Options) (*Session, error) {
	if err := ValidateRoom(descriptor.RoomID); err != nil {
		return nil, err
	}
	if options.PeerID == "" {
		options.PeerID = NewPeerID()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	logger := options.Logger.With("room", descriptor.RoomID, "local_peer", options.PeerID)

	registry := peer.NewRegistry(logger)
	synchronizer := statesync.New(statesync.Options{
		Role:           descriptor.Role(),
		Registry:       registry,
		OnStateChanged: options.OnStateChanged,
		Logger:         logger,
	})
	if err := synchronizer.Seed(options.Seed); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		descriptor:   descriptor,
		peerID:       options.PeerID,
		logger:       logger,
		registry:     registry,
		synchronizer: synchronizer,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Descriptor returns the room descriptor.
func (s *Session) Descriptor() Descriptor {
	return s.descriptor
}

// PeerID returns the local peer id.
func (s *Session) PeerID() string {
	return s.peerID
}

// Role returns the local role.
func (s *Session) Role() peer.Role {
	return s.descriptor.Role()
}

// Attach adopts channel as the connection to channel.PeerID(), whose
// role is remoteRole. An existing connection to the same peer is
// replaced and closed. On a closed session the channel is closed and
// ErrClosed returned.
func (s *Session) Attach(channel transport.Channel, remoteRole peer.Role) error {
	if s.ctx.Err() != nil {
		channel.Close()
		return ErrClosed
	}

	connection := peer.Connection{ID: channel.PeerID(), Role: remoteRole, Channel: channel}
	if err := s.registry.Register(connection); err != nil {
		if errors.Is(err, peer.ErrRegistryClosed) {
			return ErrClosed
		}
		return err
	}
	channel.SetHandler(&attachment{session: s, channel: channel, remoteRole: remoteRole})
	return nil
}

// attachment routes one channel's events to the session.
type attachment struct {
	session    *Session
	channel    transport.Channel
	remoteRole peer.Role
}

func (a *attachment) HandleMessage(peerID string, data []byte) {
	a.session.synchronizer.HandleMessage(peerID, data)
}

func (a *attachment) HandleState(peerID string, state transport.State) {
	switch state {
	case transport.StateOpen:
		a.session.synchronizer.PeerConnected(peerID, a.remoteRole)
	case transport.StateClosed:
		// A replaced channel's close must not evict its replacement.
		if a.session.registry.Remove(peerID, a.channel) {
			a.session.synchronizer.PeerDisconnected(peerID)
		}
	}
}

// Invite runs one offering handshake through dialer and attaches the
// resulting connection. Only the host invites. Returns the joined
// peer's id.
func (s *Session) Invite(ctx context.Context, dialer transport.Dialer) (string, error) {
	if s.Role() != peer.Host {
		return "", fmt.Errorf("invite: %w", ErrWrongRole)
	}
	ctx, cancel := s.handshakeContext(ctx)
	defer cancel()

	channel, err := dialer.Dial(ctx, s.descriptor.RoomID, s.peerID)
	if err != nil {
		return "", s.handshakeError("invite", err)
	}
	if err := s.Attach(channel, peer.Participant); err != nil {
		return "", err
	}
	s.logger.Info("participant joined", "peer", channel.PeerID())
	return channel.PeerID(), nil
}

// Join runs one answering handshake through acceptor and attaches the
// connection to the host. Only participants join.
func (s *Session) Join(ctx context.Context, acceptor transport.Acceptor) error {
	if s.Role() != peer.Participant {
		return fmt.Errorf("join: %w", ErrWrongRole)
	}
	ctx, cancel := s.handshakeContext(ctx)
	defer cancel()

	channel, err := acceptor.Accept(ctx, s.descriptor.RoomID, s.peerID)
	if err != nil {
		return s.handshakeError("join", err)
	}
	if err := s.Attach(channel, peer.Host); err != nil {
		return err
	}
	s.logger.Info("joined host", "peer", channel.PeerID())
	return nil
}

// handshakeContext derives a context that is also cancelled by Close.
func (s *Session) handshakeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Session) handshakeError(operation string, err error) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// AddNote adds a note to the board and shares it.
func (s *Session) AddNote(text string) (board.Note, error) {
	if s.ctx.Err() != nil {
		return board.Note{}, ErrClosed
	}
	return s.synchronizer.AddNote(text)
}

// Categorize places a note in a quadrant and shares the result.
func (s *Session) Categorize(noteID string, category board.Category) (board.Entry, error) {
	if s.ctx.Err() != nil {
		return board.Entry{}, ErrClosed
	}
	return s.synchronizer.Categorize(noteID, category)
}

// Snapshot returns a copy of the board.
func (s *Session) Snapshot() board.State {
	return s.synchronizer.Snapshot()
}

// Peers returns the current connections in id order.
func (s *Session) Peers() []peer.Connection {
	return s.registry.Connections()
}

// Close cancels pending handshakes and closes every connection. It is
// idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.registry.CloseAll()
		s.logger.Info("session closed")
	})
	return nil
}
