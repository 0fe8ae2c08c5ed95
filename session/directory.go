// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rianders/sticky-knowledge/peer"
	"github.com/rianders/sticky-knowledge/signaling"
)

// ErrInvalidRoom is returned for a room id that is empty, too long, or
// not URL-safe.
var ErrInvalidRoom = errors.New("invalid room id")

// roomAlphabet is RFC 4648 base32 in lowercase.
const roomAlphabet = "abcdefghijklmnopqrstuvwxyz234567"

// roomLength characters of 5 bits each give 60 random bits.
const roomLength = 12

// maxRoomLength bounds ids accepted from links.
const maxRoomLength = 64

// Descriptor identifies a room and whether the local peer hosts it.
type Descriptor struct {
	RoomID string
	IsHost bool
}

// Role returns the local peer's role in the room.
func (d Descriptor) Role() peer.Role {
	if d.IsHost {
		return peer.Host
	}
	return peer.Participant
}

// ShareLink returns the link others use to find the room.
func (d Descriptor) ShareLink(baseURL string) string {
	return signaling.ShareLink(baseURL, d.RoomID)
}

// CreateSession mints a new room hosted by the local peer.
func CreateSession() (Descriptor, error) {
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return Descriptor{}, fmt.Errorf("generating room id: %w", err)
	}
	bits := binary.BigEndian.Uint64(seed[:])

	var room strings.Builder
	room.Grow(roomLength)
	for index := 0; index < roomLength; index++ {
		room.WriteByte(roomAlphabet[bits&0x1f])
		bits >>= 5
	}
	return Descriptor{RoomID: room.String(), IsHost: true}, nil
}

// ResolveSession returns the descriptor for joining roomID as a
// participant. It performs no network access.
func ResolveSession(roomID string) (Descriptor, error) {
	roomID = strings.TrimSpace(roomID)
	if err := ValidateRoom(roomID); err != nil {
		return Descriptor{}, err
	}
	return Descriptor{RoomID: roomID, IsHost: false}, nil
}

// ValidateRoom checks that roomID is non-empty, at most 64 characters,
// and made only of URL-unreserved characters (letters, digits, '-',
// '_', '.', '~'), so it survives a link unescaped.
func ValidateRoom(roomID string) error {
	if roomID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidRoom)
	}
	if len(roomID) > maxRoomLength {
		return fmt.Errorf("%w: %d characters, limit %d", ErrInvalidRoom, len(roomID), maxRoomLength)
	}
	for _, char := range roomID {
		switch {
		case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z', char >= '0' && char <= '9':
		case char == '-', char == '_', char == '.', char == '~':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidRoom, roomID, char)
		}
	}
	return nil
}

// NewPeerID returns a random identifier for the local peer.
func NewPeerID() string {
	return uuid.NewString()
}
