// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the sticky
// binary. [GitCommit], [BuildTime] and [Version] are injected with
// -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/rianders/sticky-knowledge/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/sticky
package version
