// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/rianders/sticky-knowledge/peer"
	"github.com/rianders/sticky-knowledge/signaling"
)

func TestCreateSession(t *testing.T) {
	seen := make(map[string]bool)
	for index := 0; index < 100; index++ {
		descriptor, err := CreateSession()
		if err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		if !descriptor.IsHost || descriptor.Role() != peer.Host {
			t.Errorf("descriptor = %+v, want host", descriptor)
		}
		if len(descriptor.RoomID) != roomLength {
			t.Errorf("room %q has length %d, want %d", descriptor.RoomID, len(descriptor.RoomID), roomLength)
		}
		for _, char := range descriptor.RoomID {
			if !strings.ContainsRune(roomAlphabet, char) {
				t.Fatalf("room %q contains %q outside the base32 alphabet", descriptor.RoomID, char)
			}
		}
		if err := ValidateRoom(descriptor.RoomID); err != nil {
			t.Errorf("generated room fails validation: %v", err)
		}
		if seen[descriptor.RoomID] {
			t.Fatalf("room %q generated twice", descriptor.RoomID)
		}
		seen[descriptor.RoomID] = true
	}
}

func TestResolveSession(t *testing.T) {
	descriptor, err := ResolveSession(" k3j5h2m4q8rt ")
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if descriptor.RoomID != "k3j5h2m4q8rt" || descriptor.IsHost || descriptor.Role() != peer.Participant {
		t.Errorf("descriptor = %+v", descriptor)
	}
}

func TestResolveSessionRejects(t *testing.T) {
	for _, room := range []string{"", "   ", "room with spaces", "a/b", "a?b", "ünïcode", strings.Repeat("a", 65)} {
		if _, err := ResolveSession(room); !errors.Is(err, ErrInvalidRoom) {
			t.Errorf("ResolveSession(%q) = %v, want ErrInvalidRoom", room, err)
		}
	}
}

func TestDescriptorShareLinkRoundTrip(t *testing.T) {
	host, err := CreateSession()
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	link := host.ShareLink("https://sticky.example/board")

	parsed, err := signaling.ParseLink(link)
	if err != nil {
		t.Fatalf("ParseLink(%q): %v", link, err)
	}
	joined, err := ResolveSession(parsed.Room)
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if joined.RoomID != host.RoomID {
		t.Errorf("joined room %q, want %q", joined.RoomID, host.RoomID)
	}
}

func TestNewPeerIDUnique(t *testing.T) {
	if NewPeerID() == NewPeerID() {
		t.Error("NewPeerID returned the same id twice")
	}
}
