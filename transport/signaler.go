// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"sync"
	"time"

	"github.com/rianders/sticky-knowledge/lib/clock"
	"github.com/rianders/sticky-knowledge/signaling"
)

// Signaler abstracts the mechanism for exchanging session descriptions
// between the two sides of a handshake. The interactive implementation
// prints links for a human to carry ([LinkSignaler]); tests use
// in-process delivery ([MemorySignaler]).
//
// The signaling model is vanilla ICE: all candidates are gathered
// before a description is published, so a handshake needs exactly one
// round trip (offer, then answer). Handshakes are scoped by room and
// matched by the offer's Session field.
type Signaler interface {
	// PublishOffer makes a complete offer available to joiners of
	// offer.Room.
	PublishOffer(ctx context.Context, offer signaling.Description) error

	// AwaitAnswer blocks until the answer to offer arrives or ctx is
	// done.
	AwaitAnswer(ctx context.Context, offer signaling.Description) (signaling.Description, error)

	// AwaitOffer blocks until an offer for room arrives or ctx is done.
	// Each offer is returned to exactly one caller.
	AwaitOffer(ctx context.Context, room string) (signaling.Description, error)

	// PublishAnswer makes a complete answer available to the offerer.
	PublishAnswer(ctx context.Context, answer signaling.Description) error
}

// answerKey identifies the handshake an answer belongs to.
func answerKey(room, session string) string {
	return room + "|" + session
}

// mailbox holds published descriptions until a waiter takes them.
// Waiters block on a broadcast channel that is closed and replaced on
// every publish. Entries nobody takes within retention are dropped: an
// answer pasted after its Dial gave up, or an offer pasted on a peer
// that is not joining, would otherwise stay forever.
type mailbox[V any] struct {
	clock     clock.Clock
	retention time.Duration

	mu      sync.Mutex
	changed chan struct{}
	offers  map[string][]*mailEntry[V] // room → queued offers
	answers map[string]*mailEntry[V]   // room|session → answer
}

// mailEntry gives each published value an identity, so an expiry
// removes the entry it was scheduled for and not a later one under the
// same key.
type mailEntry[V any] struct {
	value V
}

func newMailbox[V any](clk clock.Clock, retention time.Duration) *mailbox[V] {
	return &mailbox[V]{
		clock:     clk,
		retention: retention,
		changed:   make(chan struct{}),
		offers:    make(map[string][]*mailEntry[V]),
		answers:   make(map[string]*mailEntry[V]),
	}
}

func (m *mailbox[V]) putOffer(room string, value V) {
	entry := &mailEntry[V]{value: value}
	m.mu.Lock()
	m.offers[room] = append(m.offers[room], entry)
	m.notifyLocked()
	m.mu.Unlock()

	m.clock.AfterFunc(m.retention, func() { m.expireOffer(room, entry) })
}

func (m *mailbox[V]) putAnswer(key string, value V) {
	entry := &mailEntry[V]{value: value}
	m.mu.Lock()
	m.answers[key] = entry
	m.notifyLocked()
	m.mu.Unlock()

	m.clock.AfterFunc(m.retention, func() { m.expireAnswer(key, entry) })
}

func (m *mailbox[V]) expireOffer(room string, entry *mailEntry[V]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	queue := m.offers[room]
	for index, queued := range queue {
		if queued != entry {
			continue
		}
		queue = append(queue[:index:index], queue[index+1:]...)
		if len(queue) == 0 {
			delete(m.offers, room)
		} else {
			m.offers[room] = queue
		}
		return
	}
}

func (m *mailbox[V]) expireAnswer(key string, entry *mailEntry[V]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.answers[key] == entry {
		delete(m.answers, key)
	}
}

// pending returns the number of entries waiting to be taken.
func (m *mailbox[V]) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := len(m.answers)
	for _, queue := range m.offers {
		count += len(queue)
	}
	return count
}

func (m *mailbox[V]) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *mailbox[V]) takeOffer(ctx context.Context, room string) (V, error) {
	return m.wait(ctx, func() (V, bool) {
		queue := m.offers[room]
		if len(queue) == 0 {
			var zero V
			return zero, false
		}
		entry := queue[0]
		if len(queue) == 1 {
			delete(m.offers, room)
		} else {
			m.offers[room] = queue[1:]
		}
		return entry.value, true
	})
}

func (m *mailbox[V]) takeAnswer(ctx context.Context, key string) (V, error) {
	return m.wait(ctx, func() (V, bool) {
		entry, ok := m.answers[key]
		if !ok {
			var zero V
			return zero, false
		}
		delete(m.answers, key)
		return entry.value, true
	})
}

// wait calls take under the lock until it reports success.
func (m *mailbox[V]) wait(ctx context.Context, take func() (V, bool)) (V, error) {
	for {
		m.mu.Lock()
		value, ok := take()
		changed := m.changed
		m.mu.Unlock()
		if ok {
			return value, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
}
