// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"errors"
	"fmt"
)

// ErrMalformedToken is returned by Decode when a token cannot be turned
// into a usable Description.
var ErrMalformedToken = errors.New("malformed signaling token")

// Mode distinguishes the two halves of a handshake.
type Mode string

const (
	ModeOffer  Mode = "offer"
	ModeAnswer Mode = "answer"
)

// Valid reports whether m is offer or answer.
func (m Mode) Valid() bool {
	return m == ModeOffer || m == ModeAnswer
}

// Description is one side of a connection handshake.
type Description struct {
	// Type is offer or answer.
	Type Mode `json:"type"`

	// Room is the room the handshake belongs to.
	Room string `json:"room"`

	// Session identifies the handshake. The offerer picks it; the
	// answer echoes it so the offerer can match answers to pending
	// offers when several joiners are connecting at once.
	Session string `json:"session"`

	// Peer is the id of the peer that produced this description.
	Peer string `json:"peer"`

	// SDP is the complete session description with candidates embedded.
	SDP string `json:"sdp"`

	// Candidates lists the ICE candidate attributes found in SDP, as
	// "candidate:..." strings. Peers that trickle candidates would
	// read these; vanilla ICE peers can ignore them.
	Candidates []string `json:"candidates"`
}

// Validate checks that every field a connection needs is present.
func (d Description) Validate() error {
	var errs []error
	if !d.Type.Valid() {
		errs = append(errs, fmt.Errorf("type %q is neither offer nor answer", d.Type))
	}
	if d.Room == "" {
		errs = append(errs, errors.New("room is empty"))
	}
	if d.Session == "" {
		errs = append(errs, errors.New("session is empty"))
	}
	if d.Peer == "" {
		errs = append(errs, errors.New("peer is empty"))
	}
	if d.SDP == "" {
		errs = append(errs, errors.New("sdp is empty"))
	}
	if len(d.Candidates) == 0 {
		errs = append(errs, errors.New("no network candidates"))
	}
	return errors.Join(errs...)
}
