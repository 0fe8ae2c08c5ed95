// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rianders/sticky-knowledge/board"
	"github.com/rianders/sticky-knowledge/lib/testutil"
	"github.com/rianders/sticky-knowledge/peer"
	"github.com/rianders/sticky-knowledge/signaling"
	"github.com/rianders/sticky-knowledge/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// pipeNetwork is a Dialer and Acceptor that pairs each Dial with one
// Accept through transport.Pipe.
type pipeNetwork struct {
	requests chan pipeRequest
}

type pipeRequest struct {
	room   string
	peerID string
	reply  chan transport.Channel
}

func newPipeNetwork() *pipeNetwork {
	return &pipeNetwork{requests: make(chan pipeRequest)}
}

func (n *pipeNetwork) Dial(ctx context.Context, room, localPeer string) (transport.Channel, error) {
	request := pipeRequest{room: room, peerID: localPeer, reply: make(chan transport.Channel, 1)}
	select {
	case n.requests <- request:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return <-request.reply, nil
}

func (n *pipeNetwork) Accept(ctx context.Context, room, localPeer string) (transport.Channel, error) {
	select {
	case request := <-n.requests:
		if request.room != room {
			return nil, errors.New("room mismatch")
		}
		dialerEnd, acceptorEnd := transport.Pipe(request.peerID, localPeer)
		request.reply <- dialerEnd
		return acceptorEnd, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type testMember struct {
	session *Session
	changes chan board.State
}

func newMember(t *testing.T, descriptor Descriptor, peerID string, seed []string) *testMember {
	t.Helper()
	member := &testMember{changes: make(chan board.State, 64)}
	session, err := New(descriptor, Options{
		PeerID:         peerID,
		Seed:           seed,
		OnStateChanged: func(state board.State) { member.changes <- state },
		Logger:         discardLogger(),
	})
	if err != nil {
		t.Fatalf("New(%s): %v", peerID, err)
	}
	t.Cleanup(func() { session.Close() })
	member.session = session
	return member
}

func (m *testMember) waitChange(t *testing.T) board.State {
	t.Helper()
	return testutil.RequireReceive(t, m.changes, 30*time.Second, "waiting for %s state change", m.session.PeerID())
}

func inviteAndJoin(t *testing.T, host, participant *testMember, dialer transport.Dialer, acceptor transport.Acceptor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	joined := make(chan error, 1)
	go func() { joined <- participant.session.Join(ctx, acceptor) }()

	peerID, err := host.session.Invite(ctx, dialer)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if peerID != participant.session.PeerID() {
		t.Errorf("Invite joined %q, want %q", peerID, participant.session.PeerID())
	}
	if err := testutil.RequireReceive(t, joined, 30*time.Second, "waiting for Join"); err != nil {
		t.Fatalf("Join: %v", err)
	}
}

func newRoom(t *testing.T) (Descriptor, Descriptor) {
	t.Helper()
	host, err := CreateSession()
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	participant, err := ResolveSession(host.RoomID)
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	return host, participant
}

func TestNewSeedsHostOnly(t *testing.T) {
	hostDescriptor, participantDescriptor := newRoom(t)
	seed := []string{"Technical Skills", "Soft Skills", "Domain Knowledge"}

	host := newMember(t, hostDescriptor, "host", seed)
	if got := len(host.session.Snapshot().Notes); got != 3 {
		t.Errorf("host has %d notes, want 3", got)
	}
	participant := newMember(t, participantDescriptor, "p1", seed)
	if got := len(participant.session.Snapshot().Notes); got != 0 {
		t.Errorf("participant has %d notes, want 0", got)
	}
}

func TestNewRejectsInvalidRoom(t *testing.T) {
	if _, err := New(Descriptor{RoomID: "bad room"}, Options{Logger: discardLogger()}); !errors.Is(err, ErrInvalidRoom) {
		t.Errorf("New(bad room) = %v, want ErrInvalidRoom", err)
	}
}

func TestInviteJoinSyncsBoards(t *testing.T) {
	hostDescriptor, participantDescriptor := newRoom(t)
	network := newPipeNetwork()

	host := newMember(t, hostDescriptor, "host", []string{"Go", "Listening"})
	host.waitChange(t)
	alice := newMember(t, participantDescriptor, "alice", nil)
	bob := newMember(t, participantDescriptor, "bob", nil)

	inviteAndJoin(t, host, alice, network, network)
	if got := alice.waitChange(t); got.Digest() != host.session.Snapshot().Digest() {
		t.Fatalf("alice did not converge on join")
	}
	inviteAndJoin(t, host, bob, network, network)
	bob.waitChange(t)

	note := host.session.Snapshot().Notes[0]
	if _, err := bob.session.Categorize(note.ID, board.KnownKnown); err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	bob.waitChange(t)
	host.waitChange(t)
	aliceState := alice.waitChange(t)

	entries := aliceState.Entries(board.KnownKnown)
	if len(entries) != 1 || entries[0].ID != note.ID {
		t.Errorf("alice known-known entries = %+v", entries)
	}
	if aliceState.Digest() != bob.session.Snapshot().Digest() {
		t.Error("alice and bob diverged")
	}

	peers := host.session.Peers()
	if len(peers) != 2 || peers[0].ID != "alice" || peers[1].ID != "bob" {
		t.Errorf("host peers = %+v", peers)
	}
	for _, connection := range peers {
		if connection.Role != peer.Participant {
			t.Errorf("peer %s role = %q, want participant", connection.ID, connection.Role)
		}
	}
}

func TestWrongRole(t *testing.T) {
	hostDescriptor, participantDescriptor := newRoom(t)
	network := newPipeNetwork()
	host := newMember(t, hostDescriptor, "host", nil)
	participant := newMember(t, participantDescriptor, "p1", nil)

	if err := host.session.Join(context.Background(), network); !errors.Is(err, ErrWrongRole) {
		t.Errorf("host Join = %v, want ErrWrongRole", err)
	}
	if _, err := participant.session.Invite(context.Background(), network); !errors.Is(err, ErrWrongRole) {
		t.Errorf("participant Invite = %v, want ErrWrongRole", err)
	}
}

func TestCloseCancelsPendingHandshake(t *testing.T) {
	hostDescriptor, _ := newRoom(t)
	host := newMember(t, hostDescriptor, "host", nil)

	invited := make(chan error, 1)
	go func() {
		_, err := host.session.Invite(context.Background(), newPipeNetwork())
		invited <- err
	}()

	// Invite blocks until a joiner arrives; none will.
	time.Sleep(20 * time.Millisecond)
	host.session.Close()

	if err := testutil.RequireReceive(t, invited, 5*time.Second, "Invite did not return after Close"); !errors.Is(err, ErrClosed) {
		t.Errorf("Invite after Close = %v, want ErrClosed", err)
	}
}

func TestCloseClosesConnections(t *testing.T) {
	hostDescriptor, participantDescriptor := newRoom(t)
	network := newPipeNetwork()
	host := newMember(t, hostDescriptor, "host", nil)
	participant := newMember(t, participantDescriptor, "p1", nil)
	inviteAndJoin(t, host, participant, network, network)
	participant.waitChange(t)

	if err := host.session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := host.session.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	testutil.Eventually(t, 5*time.Second, func() bool {
		return len(participant.session.Peers()) == 0
	}, "participant still lists the host after the host closed")

	if _, err := host.session.AddNote("late"); !errors.Is(err, ErrClosed) {
		t.Errorf("AddNote after Close = %v, want ErrClosed", err)
	}
	if _, err := host.session.Categorize("x", board.KnownKnown); !errors.Is(err, ErrClosed) {
		t.Errorf("Categorize after Close = %v, want ErrClosed", err)
	}

	late, _ := transport.Pipe("host", "p2")
	if err := host.session.Attach(late, peer.Participant); !errors.Is(err, ErrClosed) {
		t.Errorf("Attach after Close = %v, want ErrClosed", err)
	}
	if late.State() != transport.StateClosed {
		t.Error("Attach after Close left the channel open")
	}

	// The participant keeps its board and keeps working offline.
	if _, err := participant.session.AddNote("offline"); err != nil {
		t.Errorf("participant AddNote after host left: %v", err)
	}
}

func TestReattachReplacesConnection(t *testing.T) {
	hostDescriptor, participantDescriptor := newRoom(t)
	network := newPipeNetwork()
	host := newMember(t, hostDescriptor, "host", []string{"seed"})
	host.waitChange(t)
	participant := newMember(t, participantDescriptor, "p1", nil)

	inviteAndJoin(t, host, participant, network, network)
	participant.waitChange(t)
	first := host.session.Peers()[0].Channel

	// The same participant reconnects; the old link is closed and the
	// replacement survives the old link's close notification.
	inviteAndJoin(t, host, participant, network, network)
	participant.waitChange(t)

	testutil.Eventually(t, 5*time.Second, func() bool {
		return first.State() == transport.StateClosed
	}, "replaced channel not closed")
	peers := host.session.Peers()
	if len(peers) != 1 || peers[0].Channel == first {
		t.Fatalf("host peers after reconnect = %+v", peers)
	}

	if _, err := host.session.AddNote("after reconnect"); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	host.waitChange(t)
	if got := participant.waitChange(t); len(got.Notes) != 2 {
		t.Errorf("participant has %d notes, want 2", len(got.Notes))
	}
}

func TestAttachClosedChannelLeavesNoEntry(t *testing.T) {
	hostDescriptor, _ := newRoom(t)
	host := newMember(t, hostDescriptor, "host", nil)

	local, remote := transport.Pipe("host", "p1")
	remote.Close()
	if err := host.session.Attach(local, peer.Participant); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	testutil.Eventually(t, 5*time.Second, func() bool {
		return len(host.session.Peers()) == 0
	}, "closed channel still registered")
}

// TestWebRTCEndToEnd runs a full host/participant exchange over real
// pion data channels on loopback, with signaling through an in-process
// MemorySignaler.
func TestWebRTCEndToEnd(t *testing.T) {
	hostDescriptor, participantDescriptor := newRoom(t)
	signaler := transport.NewMemorySignaler(signaling.Codec{Compression: signaling.CompressionLZ4})
	hostTransport := transport.NewWebRTCTransport(signaler, transport.Options{Reliable: true, Logger: discardLogger()})
	defer hostTransport.Close()
	participantTransport := transport.NewWebRTCTransport(signaler, transport.Options{Reliable: true, Logger: discardLogger()})
	defer participantTransport.Close()

	host := newMember(t, hostDescriptor, "host", []string{"Technical Skills"})
	host.waitChange(t)
	participant := newMember(t, participantDescriptor, "p1", nil)

	inviteAndJoin(t, host, participant, hostTransport, participantTransport)
	if got := participant.waitChange(t); len(got.Notes) != 1 || got.Notes[0].Text != "Technical Skills" {
		t.Fatalf("participant state after join = %+v", got)
	}

	note, err := participant.session.AddNote("Pair programming")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	participant.waitChange(t)
	host.waitChange(t)

	if _, err := host.session.Categorize(note.ID, board.UnknownKnown); err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	want := host.waitChange(t)
	got := participant.waitChange(t)
	if got.Digest() != want.Digest() {
		t.Errorf("boards differ after categorize:\n host %+v\n participant %+v", want, got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("participant board invalid: %v", err)
	}
}
