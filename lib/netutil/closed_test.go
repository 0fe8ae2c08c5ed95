// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
)

func TestIsExpectedCloseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"wrapped closed", fmt.Errorf("closing channel: %w", net.ErrClosed), true},
		{"closed pipe", io.ErrClosedPipe, true},
		{"epipe", syscall.EPIPE, true},
		{"econnreset", fmt.Errorf("write: %w", syscall.ECONNRESET), true},
		{"other errno", syscall.EACCES, false},
		{"other", errors.New("dtls handshake failed"), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsExpectedCloseError(test.err); got != test.want {
				t.Errorf("IsExpectedCloseError(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}
