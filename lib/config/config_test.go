// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if len(cfg.Board.Seed) != 3 {
		t.Errorf("expected 3 seed notes, got %v", cfg.Board.Seed)
	}
	if !cfg.IsReliable() {
		t.Error("expected reliable delivery by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_WithoutStickyConfigUsesDefaults(t *testing.T) {
	t.Setenv(EnvVar, "")
	t.Setenv("STICKY_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Share.BaseURL != "https://sticky.local/board" {
		t.Errorf("expected expanded default base URL, got %s", cfg.Share.BaseURL)
	}
}

func TestLoad_WithStickyConfig(t *testing.T) {
	path := writeConfig(t, "sticky.yaml", `
environment: production
share:
  base_url: https://retro.example/board
transport:
  handshake_timeout: 90s
  token_compression: zstd
board:
  seed: []
`)
	t.Setenv(EnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Environment != Production {
		t.Errorf("expected environment=production, got %s", cfg.Environment)
	}
	if cfg.Share.BaseURL != "https://retro.example/board" {
		t.Errorf("expected base_url from file, got %s", cfg.Share.BaseURL)
	}
	timeout, err := cfg.HandshakeTimeoutDuration()
	if err != nil {
		t.Fatalf("HandshakeTimeoutDuration: %v", err)
	}
	if timeout != 90*time.Second {
		t.Errorf("expected handshake timeout 90s, got %s", timeout)
	}
	if cfg.Transport.TokenCompression != "zstd" {
		t.Errorf("expected token_compression=zstd, got %s", cfg.Transport.TokenCompression)
	}
	if len(cfg.Board.Seed) != 0 {
		t.Errorf("expected empty seed, got %v", cfg.Board.Seed)
	}
	// Fields absent from the file keep their defaults.
	if len(cfg.Transport.ICEServers) != 1 {
		t.Errorf("expected default ICE servers, got %v", cfg.Transport.ICEServers)
	}
}

func TestLoadFile_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "sticky.yaml", `
environment: production
transport:
  ice_servers: ["stun:stun.l.google.com:19302"]
production:
  transport:
    ice_servers: ["stun:stun.example.org:3478", "turn:turn.example.org:3478"]
    reliable: false
  log:
    format: json
development:
  log:
    level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if len(cfg.Transport.ICEServers) != 2 || cfg.Transport.ICEServers[1] != "turn:turn.example.org:3478" {
		t.Errorf("expected production ICE servers, got %v", cfg.Transport.ICEServers)
	}
	if cfg.IsReliable() {
		t.Error("expected production override reliable=false")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected log.format=json, got %s", cfg.Log.Format)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("development override leaked into production: level=%s", cfg.Log.Level)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "sticky.jsonc", `{
	// Shared by the whole retro team.
	"share": {"base_url": "https://retro.example/jsonc"},
	"transport": {
		"handshake_timeout": "2m",
		"token_compression": "lz4", /* shorter links */
	},
	"board": {"seed": ["Kubernetes"]},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Share.BaseURL != "https://retro.example/jsonc" {
		t.Errorf("expected base_url from jsonc, got %s", cfg.Share.BaseURL)
	}
	if cfg.Transport.TokenCompression != "lz4" {
		t.Errorf("expected token_compression=lz4, got %s", cfg.Transport.TokenCompression)
	}
	if len(cfg.Board.Seed) != 1 || cfg.Board.Seed[0] != "Kubernetes" {
		t.Errorf("expected seed [Kubernetes], got %v", cfg.Board.Seed)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("RETRO_HOST", "retro.internal")

	path := writeConfig(t, "sticky.yaml", `
share:
  base_url: https://${RETRO_HOST}/${RETRO_PATH:-board}
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Share.BaseURL != "https://retro.internal/board" {
		t.Errorf("expected expanded base URL, got %s", cfg.Share.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Environment = "staging"
	cfg.Share.BaseURL = ""
	cfg.Transport.HandshakeTimeout = "soon"
	cfg.Transport.TokenCompression = "brotli"
	cfg.Transport.ICEServers = []string{"http://stun.example.org"}
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}

	for _, fragment := range []string{
		"invalid environment",
		"share.base_url",
		"handshake_timeout",
		"token_compression",
		"ice_servers",
		"log.level",
		"log.format",
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("validation error missing %q: %v", fragment, err)
		}
	}
}

func TestValidateICESchemes(t *testing.T) {
	cfg := Default()
	cfg.Transport.ICEServers = []string{
		"stun:stun.example.org:3478",
		"stuns:stun.example.org:5349",
		"turn:turn.example.org:3478?transport=udp",
		"turns:turn.example.org:5349",
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	cfg.Transport.ICEServers = []string{"stunx:stun.example.org"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "ice_servers") {
		t.Errorf("Validate = %v, want an ice_servers error", err)
	}
}

func TestHandshakeTimeoutMustBePositive(t *testing.T) {
	cfg := Default()
	cfg.Transport.HandshakeTimeout = "0s"
	if _, err := cfg.HandshakeTimeoutDuration(); err == nil {
		t.Error("expected error for zero handshake timeout")
	}
}
