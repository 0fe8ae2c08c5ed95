// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rianders/sticky-knowledge/lib/clock"
	"github.com/rianders/sticky-knowledge/signaling"
)

// Compile-time interface check.
var _ Signaler = (*LinkSignaler)(nil)

// LinkSignaler carries handshakes through a human. Published offers and
// answers are written to an output as board links; the person copies
// them to the other side by any means (chat, email). Links pasted back
// in are handed to Deliver, which routes them to the waiting Dial or
// Accept.
type LinkSignaler struct {
	baseURL string
	codec   signaling.Codec

	outputMu sync.Mutex
	output   io.Writer

	mailbox *mailbox[signaling.Description]
}

// NewLinkSignaler creates a signaler that writes links rooted at
// baseURL to output. Pasted descriptions that no handshake claims
// within DefaultHandshakeTimeout are discarded.
func NewLinkSignaler(baseURL string, codec signaling.Codec, output io.Writer) *LinkSignaler {
	return &LinkSignaler{
		baseURL: baseURL,
		codec:   codec,
		output:  output,
		mailbox: newMailbox[signaling.Description](clock.Real(), DefaultHandshakeTimeout),
	}
}

func (s *LinkSignaler) PublishOffer(_ context.Context, offer signaling.Description) error {
	return s.publish(offer, signaling.ModeOffer,
		"Invite link (send to the person joining):")
}

func (s *LinkSignaler) PublishAnswer(_ context.Context, answer signaling.Description) error {
	return s.publish(answer, signaling.ModeAnswer,
		"Answer link (send back to the host, who pastes it with 'answer'):")
}

func (s *LinkSignaler) publish(desc signaling.Description, mode signaling.Mode, heading string) error {
	token, err := s.codec.Encode(desc, mode)
	if err != nil {
		return err
	}
	desc.Type = mode
	link := signaling.LinkFor(s.baseURL, desc, token)

	s.outputMu.Lock()
	defer s.outputMu.Unlock()
	if _, err := fmt.Fprintf(s.output, "%s\n%s\n", heading, link); err != nil {
		return fmt.Errorf("writing %s link: %w", mode, err)
	}
	return nil
}

// Deliver accepts a pasted link or bare token and routes it to the
// handshake waiting for it. A malformed paste returns an error wrapping
// signaling.ErrMalformedToken and changes nothing.
func (s *LinkSignaler) Deliver(input string) (signaling.Description, error) {
	desc, err := signaling.DecodeInput(input)
	if err != nil {
		return signaling.Description{}, err
	}
	switch desc.Type {
	case signaling.ModeOffer:
		s.mailbox.putOffer(desc.Room, desc)
	case signaling.ModeAnswer:
		s.mailbox.putAnswer(answerKey(desc.Room, desc.Session), desc)
	}
	return desc, nil
}

func (s *LinkSignaler) AwaitOffer(ctx context.Context, room string) (signaling.Description, error) {
	return s.mailbox.takeOffer(ctx, room)
}

func (s *LinkSignaler) AwaitAnswer(ctx context.Context, offer signaling.Description) (signaling.Description, error) {
	return s.mailbox.takeAnswer(ctx, answerKey(offer.Room, offer.Session))
}
