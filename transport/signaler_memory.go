// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"

	"github.com/rianders/sticky-knowledge/lib/clock"
	"github.com/rianders/sticky-knowledge/signaling"
)

// Compile-time interface check.
var _ Signaler = (*MemorySignaler)(nil)

// MemorySignaler is an in-process Signaler for tests. Descriptions are
// stored as encoded tokens, exactly as they would travel inside a link,
// so two WebRTCTransport instances sharing a MemorySignaler exercise
// the token codec without any human in the loop.
type MemorySignaler struct {
	codec   signaling.Codec
	mailbox *mailbox[string]
}

// NewMemorySignaler creates an in-process signaler that encodes with
// codec.
func NewMemorySignaler(codec signaling.Codec) *MemorySignaler {
	return &MemorySignaler{codec: codec, mailbox: newMailbox[string](clock.Real(), DefaultHandshakeTimeout)}
}

func (s *MemorySignaler) PublishOffer(_ context.Context, offer signaling.Description) error {
	token, err := s.codec.Encode(offer, signaling.ModeOffer)
	if err != nil {
		return err
	}
	s.mailbox.putOffer(offer.Room, token)
	return nil
}

func (s *MemorySignaler) PublishAnswer(_ context.Context, answer signaling.Description) error {
	token, err := s.codec.Encode(answer, signaling.ModeAnswer)
	if err != nil {
		return err
	}
	s.mailbox.putAnswer(answerKey(answer.Room, answer.Session), token)
	return nil
}

func (s *MemorySignaler) AwaitOffer(ctx context.Context, room string) (signaling.Description, error) {
	token, err := s.mailbox.takeOffer(ctx, room)
	if err != nil {
		return signaling.Description{}, err
	}
	return signaling.Decode(token)
}

func (s *MemorySignaler) AwaitAnswer(ctx context.Context, offer signaling.Description) (signaling.Description, error) {
	token, err := s.mailbox.takeAnswer(ctx, answerKey(offer.Room, offer.Session))
	if err != nil {
		return signaling.Description{}, err
	}
	return signaling.Decode(token)
}
