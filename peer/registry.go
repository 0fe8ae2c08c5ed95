// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/rianders/sticky-knowledge/transport"
)

var (
	// ErrUnknownPeer is returned by SendTo for an id with no entry.
	ErrUnknownPeer = errors.New("unknown peer")

	// ErrRegistryClosed is returned by Register after CloseAll.
	ErrRegistryClosed = errors.New("peer registry closed")
)

// Connection is one remote peer's entry.
type Connection struct {
	ID      string
	Role    Role
	Channel transport.Channel
}

// State returns the channel's current state.
func (c Connection) State() transport.State {
	return c.Channel.State()
}

// Registry is the set of connections for one session. It is safe for
// concurrent use.
type Registry struct {
	logger *slog.Logger

	mu          sync.Mutex
	connections map[string]Connection
	closed      bool
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger,
		connections: make(map[string]Connection),
	}
}

// Register adds connection, replacing any entry with the same id. The
// replaced channel is closed after the lock is released. After
// CloseAll, Register closes the new channel and returns
// ErrRegistryClosed.
func (r *Registry) Register(connection Connection) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		connection.Channel.Close()
		return ErrRegistryClosed
	}
	previous, replaced := r.connections[connection.ID]
	r.connections[connection.ID] = connection
	r.mu.Unlock()

	if replaced && previous.Channel != connection.Channel {
		r.logger.Info("replacing connection", "peer", connection.ID)
		previous.Channel.Close()
	}
	r.logger.Debug("connection registered", "peer", connection.ID, "role", string(connection.Role))
	return nil
}

// Unregister removes the entry for id without closing its channel and
// returns what was removed.
func (r *Registry) Unregister(id string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	connection, ok := r.connections[id]
	if ok {
		delete(r.connections, id)
	}
	return connection, ok
}

// Remove deletes the entry for id only if it still holds channel. A
// close notification from a channel that has since been replaced does
// not evict its replacement.
func (r *Registry) Remove(id string, channel transport.Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.connections[id]; ok && current.Channel == channel {
		delete(r.connections, id)
		return true
	}
	return false
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	connection, ok := r.connections[id]
	return connection, ok
}

// ForEachOpen calls fn for every connection whose channel is Open, in
// id order. The set is captured under the lock; fn runs after it is
// released.
func (r *Registry) ForEachOpen(fn func(Connection)) {
	for _, connection := range r.open() {
		fn(connection)
	}
}

func (r *Registry) open() []Connection {
	r.mu.Lock()
	open := make([]Connection, 0, len(r.connections))
	for _, connection := range r.connections {
		open = append(open, connection)
	}
	r.mu.Unlock()

	// Channel state has its own lock; read it outside ours.
	filtered := open[:0]
	for _, connection := range open {
		if connection.State() == transport.StateOpen {
			filtered = append(filtered, connection)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].ID < filtered[j].ID })
	return filtered
}

// Broadcast sends data to every open connection and returns how many
// sends succeeded. Failed sends are logged and skipped.
func (r *Registry) Broadcast(data []byte) int {
	return r.BroadcastExcept("", data)
}

// BroadcastExcept is Broadcast skipping the connection with id
// excludeID.
func (r *Registry) BroadcastExcept(excludeID string, data []byte) int {
	delivered := 0
	r.ForEachOpen(func(connection Connection) {
		if excludeID != "" && connection.ID == excludeID {
			return
		}
		if r.send(connection, data) == nil {
			delivered++
		}
	})
	return delivered
}

// SendTo sends data to the connection with id.
func (r *Registry) SendTo(id string, data []byte) error {
	connection, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, id)
	}
	return r.send(connection, data)
}

func (r *Registry) send(connection Connection, data []byte) error {
	err := connection.Channel.Send(data)
	switch {
	case err == nil:
	case errors.Is(err, transport.ErrChannelClosed), errors.Is(err, transport.ErrChannelNotOpen):
		r.logger.Debug("dropped send", "peer", connection.ID, "error", err)
	default:
		r.logger.Warn("send failed", "peer", connection.ID, "error", err)
	}
	return err
}

// OpenCount returns the number of open connections.
func (r *Registry) OpenCount() int {
	return len(r.open())
}

// Len returns the number of entries in any state.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connections)
}

// Connections returns every entry, in id order.
func (r *Registry) Connections() []Connection {
	r.mu.Lock()
	connections := make([]Connection, 0, len(r.connections))
	for _, connection := range r.connections {
		connections = append(connections, connection)
	}
	r.mu.Unlock()

	sort.Slice(connections, func(i, j int) bool { return connections[i].ID < connections[j].ID })
	return connections
}

// CloseAll empties the registry, closes every channel, and makes later
// Register calls fail. It is idempotent.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	connections := r.connections
	r.connections = make(map[string]Connection)
	r.mu.Unlock()

	for _, connection := range connections {
		connection.Channel.Close()
	}
}
