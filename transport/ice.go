// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"strings"

	"github.com/pion/webrtc/v4"
)

// ICEConfig holds ICE server configuration for WebRTC PeerConnections.
type ICEConfig struct {
	// Servers is the list of ICE servers (STUN + TURN) to use during
	// candidate gathering.
	Servers []webrtc.ICEServer
}

// ICEConfigFromURLs builds an ICEConfig from configured server URLs.
// STUN URLs share one credential-less entry; TURN URLs share one entry
// carrying username and credential. An empty list yields host
// candidates only, which is enough for same-machine and same-LAN use.
func ICEConfigFromURLs(urls []string, username, credential string) ICEConfig {
	var stun, turn []string
	for _, url := range urls {
		url = strings.TrimSpace(url)
		switch {
		case url == "":
		case strings.HasPrefix(url, "turn:"), strings.HasPrefix(url, "turns:"):
			turn = append(turn, url)
		default:
			stun = append(stun, url)
		}
	}

	var config ICEConfig
	if len(stun) > 0 {
		config.Servers = append(config.Servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		config.Servers = append(config.Servers, webrtc.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: credential,
		})
	}
	return config
}
