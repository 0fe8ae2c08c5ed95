// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statesync

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rianders/sticky-knowledge/board"
	"github.com/rianders/sticky-knowledge/peer"
)

// ErrUnknownNote is returned by Categorize for a note id that is not on
// the board.
var ErrUnknownNote = board.ErrNoteNotFound

// Options configures a Synchronizer.
type Options struct {
	// Role is the local peer's role in the session.
	Role peer.Role

	// Registry holds the session's connections. Broadcasts and
	// unicast replies go through it. Nil means a private empty
	// registry, which suits a board nobody has joined.
	Registry *peer.Registry

	// OnStateChanged, if set, is called with a copy of the state after
	// every local mutation and every accepted remote snapshot, in the
	// order they were applied. It runs outside the state lock, so it may
	// call Snapshot, but it must not call AddNote or Categorize.
	OnStateChanged func(board.State)

	// NewID returns a fresh note id. Nil means a UUIDv7, which sorts
	// by creation time.
	NewID func() (string, error)

	Logger *slog.Logger
}

// Synchronizer owns one peer's copy of the board and keeps it in step
// with the session. All methods are safe for concurrent use.
//
// Lock order: notifyMu, then mu, then the registry's mutex, never
// backwards. Snapshot encoding and broadcast happen under the
// synchronizer mutex, so peers receive snapshots in the order they
// were applied locally.
type Synchronizer struct {
	role     peer.Role
	registry *peer.Registry
	observer func(board.State)
	newID    func() (string, error)
	logger   *slog.Logger

	mu    sync.Mutex
	state board.State

	// notifyMu serializes mutations together with their observer call,
	// so observers see states in application order. Mutating paths
	// take it before mu and hold it until the observer returns.
	notifyMu sync.Mutex
}

// New creates a Synchronizer with an empty board.
func New(options Options) *Synchronizer {
	if options.NewID == nil {
		options.NewID = newNoteID
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Registry == nil {
		options.Registry = peer.NewRegistry(options.Logger)
	}
	return &Synchronizer{
		role:     options.Role,
		registry: options.Registry,
		observer: options.OnStateChanged,
		newID:    options.NewID,
		logger:   options.Logger.With("role", string(options.Role)),
		state:    board.New(),
	}
}

func newNoteID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Role returns the local role.
func (s *Synchronizer) Role() peer.Role {
	return s.role
}

// Snapshot returns a deep copy of the current state.
func (s *Synchronizer) Snapshot() board.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Seed adds starter notes to an empty host board without broadcasting:
// nobody is connected yet, and joiners pull the state anyway.
// Participants and boards that already have notes are left alone.
func (s *Synchronizer) Seed(texts []string) error {
	if s.role != peer.Host || len(texts) == 0 {
		return nil
	}

	notes := make([]board.Note, 0, len(texts))
	for _, text := range texts {
		note, err := s.makeNote(text)
		if err != nil {
			return fmt.Errorf("seeding %q: %w", text, err)
		}
		notes = append(notes, note)
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	if len(s.state.Notes) > 0 {
		s.mu.Unlock()
		return nil
	}
	for _, note := range notes {
		if err := s.state.AddNote(note); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("seeding %q: %w", note.Text, err)
		}
	}
	s.logger.Info("board seeded", "notes", len(texts))
	s.notifyAndUnlock()
	return nil
}

// AddNote creates a note from text, appends it to the board and
// broadcasts the new state. Blank text fails with board.ErrEmptyText.
func (s *Synchronizer) AddNote(text string) (board.Note, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	note, err := s.makeNote(text)
	if err != nil {
		s.mu.Unlock()
		return board.Note{}, err
	}
	if err := s.state.AddNote(note); err != nil {
		s.mu.Unlock()
		return board.Note{}, err
	}
	s.logger.Info("note added", "note", note.ID)
	s.broadcastLocked("")
	s.notifyAndUnlock()
	return note, nil
}

func (s *Synchronizer) makeNote(text string) (board.Note, error) {
	id, err := s.newID()
	if err != nil {
		return board.Note{}, fmt.Errorf("generating note id: %w", err)
	}
	return board.NewNote(id, text)
}

// Categorize places the note with noteID in category and broadcasts
// the new state. Placing a note where it already is returns the
// existing entry with no broadcast and no notification. Unknown notes
// fail with ErrUnknownNote and invalid categories with
// board.ErrUnknownCategory; neither changes or broadcasts anything.
func (s *Synchronizer) Categorize(noteID string, category board.Category) (board.Entry, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	entry, added, err := s.state.Categorize(noteID, category)
	if err != nil {
		s.mu.Unlock()
		return board.Entry{}, err
	}
	if !added {
		s.mu.Unlock()
		return entry, nil
	}
	s.logger.Info("note categorized", "note", noteID, "category", string(category))
	s.broadcastLocked("")
	s.notifyAndUnlock()
	return entry, nil
}

// HandleMessage processes one inbound message from peerID. It never
// fails: problems are logged and the message is dropped.
func (s *Synchronizer) HandleMessage(peerID string, data []byte) {
	message, err := Decode(data)
	if err != nil {
		if errors.Is(err, ErrUnknownMessage) {
			s.logger.Warn("ignoring message", "peer", peerID, "error", err)
		} else {
			s.logger.Warn("dropping malformed message", "peer", peerID, "error", err)
		}
		return
	}

	switch message.Type {
	case TypeRequestState:
		s.handleRequestState(peerID)
	case TypeState:
		s.handleState(peerID, message.State)
	}
}

func (s *Synchronizer) handleRequestState(peerID string) {
	if s.role != peer.Host {
		s.logger.Debug("ignoring requestState as participant", "peer", peerID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := EncodeState(s.state)
	if err != nil {
		s.logger.Error("encoding snapshot", "error", err)
		return
	}
	if err := s.registry.SendTo(peerID, data); err != nil {
		s.logger.Warn("answering requestState", "peer", peerID, "error", err)
		return
	}
	s.logger.Debug("sent snapshot", "peer", peerID, "digest", s.state.Digest().String())
}

func (s *Synchronizer) handleState(peerID string, incoming board.State) {
	incoming.Normalize()
	if err := incoming.Validate(); err != nil {
		s.logger.Warn("dropping invalid snapshot", "peer", peerID, "error", err)
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	s.state = incoming
	s.logger.Debug("accepted snapshot", "peer", peerID, "digest", incoming.Digest().String())
	if s.role == peer.Host {
		s.broadcastLocked(peerID)
	}
	s.notifyAndUnlock()
}

// PeerConnected is called when the channel to peerID opens. A
// participant pulls the host's state when this is its first open
// connection; a host waits to be asked.
func (s *Synchronizer) PeerConnected(peerID string, remoteRole peer.Role) {
	s.logger.Info("peer connected", "peer", peerID, "remote_role", string(remoteRole))
	if s.role != peer.Participant {
		return
	}
	if open := s.registry.OpenCount(); open != 1 {
		s.logger.Debug("not requesting state", "peer", peerID, "open_connections", open)
		return
	}
	if err := s.registry.SendTo(peerID, EncodeRequestState()); err != nil {
		s.logger.Warn("sending requestState", "peer", peerID, "error", err)
	}
}

// PeerDisconnected is called when the channel to peerID closes. The
// board is unaffected.
func (s *Synchronizer) PeerDisconnected(peerID string) {
	s.logger.Info("peer disconnected", "peer", peerID)
}

// broadcastLocked sends the current state to every open connection
// except excludeID. Caller holds s.mu.
func (s *Synchronizer) broadcastLocked(excludeID string) {
	data, err := EncodeState(s.state)
	if err != nil {
		s.logger.Error("encoding snapshot", "error", err)
		return
	}
	delivered := s.registry.BroadcastExcept(excludeID, data)
	s.logger.Debug("broadcast snapshot", "delivered", delivered, "digest", s.state.Digest().String())
}

// notifyAndUnlock releases s.mu and calls the observer with the state
// as it was at release. Caller holds s.notifyMu and s.mu, and releases
// s.notifyMu after this returns.
func (s *Synchronizer) notifyAndUnlock() {
	if s.observer == nil {
		s.mu.Unlock()
		return
	}
	snapshot := s.state.Clone()
	s.mu.Unlock()
	s.observer(snapshot)
}
