// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/rianders/sticky-knowledge/lib/clock"
	"github.com/rianders/sticky-knowledge/signaling"
)

// ChannelLabel is the data channel label both sides use.
const ChannelLabel = "stateSync"

// iceGatherTimeout is the maximum time to wait for ICE candidate gathering
// to complete before publishing the SDP.
const iceGatherTimeout = 15 * time.Second

// DefaultHandshakeTimeout bounds a handshake when Options leaves it
// zero. A human carries the links, so the bound is generous.
const DefaultHandshakeTimeout = 5 * time.Minute

// Options configures a WebRTCTransport.
type Options struct {
	// ICE is the STUN/TURN configuration for new PeerConnections.
	ICE ICEConfig

	// Reliable selects retransmission of lost messages. Ordering is
	// always on. When false, lost messages are not retransmitted.
	Reliable bool

	// HandshakeTimeout bounds the time from publishing a description to
	// the data channel opening. Zero means DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// Clock drives the handshake and gather timeouts. Nil means
	// clock.Real().
	Clock clock.Clock

	Logger *slog.Logger
}

// WebRTCTransport establishes board connections over WebRTC data
// channels. Dial is the offering side (the host inviting someone),
// Accept the answering side (a participant joining). Each successful
// handshake yields a Channel that owns its own PeerConnection.
//
// Connection establishment uses vanilla ICE: all candidates are
// gathered before a description is published, so signaling requires
// exactly one round trip, which is what makes copy-pasted links a
// workable signaling path.
type WebRTCTransport struct {
	signaler Signaler
	options  Options
	clock    clock.Clock
	logger   *slog.Logger

	// pending maps handshake session → PeerConnection for handshakes
	// that have not yet produced an open channel. Close tears them down.
	mu      sync.Mutex
	pending map[string]*webrtc.PeerConnection

	// closed signals shutdown.
	closed    chan struct{}
	closeOnce sync.Once
}

// NewWebRTCTransport creates a WebRTC transport that exchanges
// descriptions through signaler.
func NewWebRTCTransport(signaler Signaler, options Options) *WebRTCTransport {
	if options.HandshakeTimeout <= 0 {
		options.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &WebRTCTransport{
		signaler: signaler,
		options:  options,
		clock:    options.Clock,
		logger:   options.Logger,
		pending:  make(map[string]*webrtc.PeerConnection),
		closed:   make(chan struct{}),
	}
}

// Close tears down every handshake still in progress. Channels already
// returned by Dial or Accept belong to their callers and stay open.
func (wt *WebRTCTransport) Close() error {
	wt.closeOnce.Do(func() {
		close(wt.closed)
	})

	wt.mu.Lock()
	defer wt.mu.Unlock()

	for session, connection := range wt.pending {
		connection.Close()
		delete(wt.pending, session)
	}
	return nil
}

// Dial publishes an offer for room as localPeer and waits for a joiner
// to answer it. Returns ErrHandshakeTimeout if no answer arrives and
// the channel does not open within the handshake timeout.
func (wt *WebRTCTransport) Dial(ctx context.Context, room, localPeer string) (Channel, error) {
	if err := wt.checkClosed(); err != nil {
		return nil, err
	}

	session := uuid.NewString()
	logger := wt.logger.With("room", room, "session", session)

	pc, err := wt.newPeerConnection()
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}
	wt.track(session, pc)
	defer wt.untrack(session)

	channel, err := wt.dial(ctx, pc, room, session, localPeer, logger)
	if err != nil {
		pc.Close()
		return nil, err
	}
	return channel, nil
}

func (wt *WebRTCTransport) dial(ctx context.Context, pc *webrtc.PeerConnection, room, session, localPeer string, logger *slog.Logger) (Channel, error) {
	ordered := true
	channelInit := &webrtc.DataChannelInit{Ordered: &ordered}
	if !wt.options.Reliable {
		var noRetransmits uint16
		channelInit.MaxRetransmits = &noRetransmits
	}
	dc, err := pc.CreateDataChannel(ChannelLabel, channelInit)
	if err != nil {
		return nil, fmt.Errorf("creating data channel: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("creating SDP offer: %w", err)
	}
	local, err := wt.gather(ctx, pc, offer)
	if err != nil {
		return nil, err
	}
	candidates, err := candidatesOf(local.SDP)
	if err != nil {
		return nil, err
	}

	description := signaling.Description{
		Type:       signaling.ModeOffer,
		Room:       room,
		Session:    session,
		Peer:       localPeer,
		SDP:        local.SDP,
		Candidates: candidates,
	}

	// The handshake clock starts once the offer is out.
	deadline := wt.clock.After(wt.options.HandshakeTimeout)
	published := wt.clock.Now()
	if err := wt.signaler.PublishOffer(ctx, description); err != nil {
		return nil, fmt.Errorf("publishing SDP offer: %w", err)
	}
	logger.Info("WebRTC offer published")

	answer, err := wt.awaitSignal(ctx, deadline, func(ctx context.Context) (signaling.Description, error) {
		return wt.signaler.AwaitAnswer(ctx, description)
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for SDP answer: %w", err)
	}
	logger.Info("WebRTC answer received", "peer", answer.Peer)

	channel := newDataChannel(answer.Peer, pc, wt.logger)
	channel.attach(dc)

	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer.SDP}
	if err := pc.SetRemoteDescription(remote); err != nil {
		channel.Close()
		return nil, fmt.Errorf("setting remote description: %w", err)
	}

	if err := wt.awaitOpen(ctx, deadline, channel); err != nil {
		channel.Close()
		return nil, err
	}
	logger.Info("WebRTC handshake complete", "peer", answer.Peer, "elapsed", wt.clock.Now().Sub(published))
	return channel, nil
}

// Accept waits for an offer for room, answers it as localPeer, and
// waits for the offerer's data channel to open. The handshake timeout
// runs from the moment the offer arrives.
func (wt *WebRTCTransport) Accept(ctx context.Context, room, localPeer string) (Channel, error) {
	if err := wt.checkClosed(); err != nil {
		return nil, err
	}

	offer, err := wt.signaler.AwaitOffer(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("waiting for SDP offer: %w", err)
	}
	deadline := wt.clock.After(wt.options.HandshakeTimeout)
	received := wt.clock.Now()
	logger := wt.logger.With("room", room, "session", offer.Session, "peer", offer.Peer)
	logger.Info("WebRTC offer received")

	pc, err := wt.newPeerConnection()
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}
	wt.track(offer.Session, pc)
	defer wt.untrack(offer.Session)

	channel := newDataChannel(offer.Peer, pc, wt.logger)
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != ChannelLabel {
			logger.Warn("ignoring unexpected data channel", "label", dc.Label())
			dc.Close()
			return
		}
		channel.attach(dc)
	})

	if err := wt.answer(ctx, pc, offer, localPeer); err != nil {
		channel.Close()
		return nil, err
	}
	logger.Info("WebRTC answer published")

	if err := wt.awaitOpen(ctx, deadline, channel); err != nil {
		channel.Close()
		return nil, err
	}
	logger.Info("WebRTC handshake complete", "elapsed", wt.clock.Now().Sub(received))
	return channel, nil
}

func (wt *WebRTCTransport) answer(ctx context.Context, pc *webrtc.PeerConnection, offer signaling.Description, localPeer string) error {
	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer.SDP}
	if err := pc.SetRemoteDescription(remote); err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("creating SDP answer: %w", err)
	}
	local, err := wt.gather(ctx, pc, answer)
	if err != nil {
		return err
	}
	candidates, err := candidatesOf(local.SDP)
	if err != nil {
		return err
	}

	description := signaling.Description{
		Type:       signaling.ModeAnswer,
		Room:       offer.Room,
		Session:    offer.Session,
		Peer:       localPeer,
		SDP:        local.SDP,
		Candidates: candidates,
	}
	if err := wt.signaler.PublishAnswer(ctx, description); err != nil {
		return fmt.Errorf("publishing SDP answer: %w", err)
	}
	return nil
}

// gather sets description as the local description and waits for ICE
// gathering to complete (vanilla ICE). Returns the final local
// description with every candidate embedded.
func (wt *WebRTCTransport) gather(ctx context.Context, pc *webrtc.PeerConnection, description webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(description); err != nil {
		return nil, fmt.Errorf("setting local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-wt.clock.After(iceGatherTimeout):
		return nil, fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wt.closed:
		return nil, ErrTransportClosed
	}
	return pc.LocalDescription(), nil
}

// awaitSignal runs wait until it returns, the handshake deadline
// passes, ctx is done, or the transport closes.
func (wt *WebRTCTransport) awaitSignal(ctx context.Context, deadline <-chan time.Time, wait func(context.Context) (signaling.Description, error)) (signaling.Description, error) {
	waitContext, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		description signaling.Description
		err         error
	}
	results := make(chan result, 1)
	go func() {
		description, err := wait(waitContext)
		results <- result{description, err}
	}()

	select {
	case received := <-results:
		return received.description, received.err
	case <-deadline:
		return signaling.Description{}, ErrHandshakeTimeout
	case <-ctx.Done():
		return signaling.Description{}, ctx.Err()
	case <-wt.closed:
		return signaling.Description{}, ErrTransportClosed
	}
}

// awaitOpen waits for channel to open within the handshake deadline.
func (wt *WebRTCTransport) awaitOpen(ctx context.Context, deadline <-chan time.Time, channel *dataChannel) error {
	select {
	case <-channel.opened:
		return nil
	case <-channel.done:
		return errors.New("connection closed during handshake")
	case <-deadline:
		return ErrHandshakeTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-wt.closed:
		return ErrTransportClosed
	}
}

func (wt *WebRTCTransport) checkClosed() error {
	select {
	case <-wt.closed:
		return ErrTransportClosed
	default:
		return nil
	}
}

func (wt *WebRTCTransport) track(session string, pc *webrtc.PeerConnection) {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	wt.pending[session] = pc
}

func (wt *WebRTCTransport) untrack(session string) {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	delete(wt.pending, session)
}

// candidatesOf extracts candidates from a gathered SDP. A description
// without candidates cannot connect, so that is an error here rather
// than at the remote decoder.
func candidatesOf(rawSDP string) ([]string, error) {
	candidates, err := extractCandidates(rawSDP)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("ICE gathering produced no candidates")
	}
	return candidates, nil
}

// newPeerConnection creates a pion PeerConnection with the configured
// ICE servers.
func (wt *WebRTCTransport) newPeerConnection() (*webrtc.PeerConnection, error) {
	config := webrtc.Configuration{
		ICEServers: wt.options.ICE.Servers,
	}

	// Loopback candidates are required for same-machine boards and test
	// environments where loopback is the only available interface.
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	return api.NewPeerConnection(config)
}
