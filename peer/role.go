// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

// Role is a peer's part in a session: the single host that created the
// room, or a participant that joined it.
type Role string

const (
	Host        Role = "host"
	Participant Role = "participant"
)

// Opposite returns the role a remote peer has when the local peer has
// role r. Sessions are star-shaped: hosts only talk to participants
// and participants only to the host.
func (r Role) Opposite() Role {
	if r == Host {
		return Participant
	}
	return Host
}
