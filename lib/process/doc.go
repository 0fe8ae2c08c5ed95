// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the binary entrypoint error handler, for
// failures that happen before the structured logger exists.
package process
