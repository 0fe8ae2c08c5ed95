// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for sticky peers.
//
// Configuration comes from at most one file, named by the
// STICKY_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery of other locations. With no
// file, [Default] applies; it is a complete working configuration.
//
// YAML is the native format. Files ending in .json or .jsonc are
// accepted too: comments are stripped with tidwall/jsonc and the result
// is decoded with the same yaml tags.
//
// A file may contain development and production sections that
// override base values when [Config].Environment matches. The share
// base URL supports ${VAR} and ${VAR:-default} expansion. No other
// environment variables override config values.
//
// This package depends on no other sticky packages.
package config
