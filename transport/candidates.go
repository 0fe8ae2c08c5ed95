// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"

	"github.com/pion/sdp/v3"
)

// extractCandidates returns every ICE candidate attribute in rawSDP as
// a "candidate:..." string, session-level attributes first, then each
// media section in order.
func extractCandidates(rawSDP string) ([]string, error) {
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(rawSDP)); err != nil {
		return nil, fmt.Errorf("parsing SDP: %w", err)
	}

	var candidates []string
	collect := func(attributes []sdp.Attribute) {
		for _, attribute := range attributes {
			if attribute.Key == "candidate" {
				candidates = append(candidates, "candidate:"+attribute.Value)
			}
		}
	}
	collect(parsed.Attributes)
	for _, media := range parsed.MediaDescriptions {
		collect(media.Attributes)
	}
	return candidates, nil
}
