// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that points at the config file.
const EnvVar = "STICKY_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local runs, typically two terminals on one
	// machine. Only host ICE candidates are needed.
	Development Environment = "development"
	// Production is for peers on different networks.
	Production Environment = "production"
)

// Config is the configuration for a sticky peer.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Share configures the links peers pass to each other.
	Share ShareConfig `yaml:"share"`

	// Transport configures WebRTC connection setup.
	Transport TransportConfig `yaml:"transport"`

	// Board configures the initial board of a hosted session.
	Board BoardConfig `yaml:"board"`

	// Log configures the structured logger.
	Log LogConfig `yaml:"log"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the fields that can be overridden per environment.
type Overrides struct {
	Share     *ShareConfig     `yaml:"share,omitempty"`
	Transport *TransportConfig `yaml:"transport,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// ShareConfig configures shareable links.
type ShareConfig struct {
	// BaseURL is the prefix of every link: <base_url>?room=<id>.
	// Supports ${VAR} and ${VAR:-default} expansion.
	BaseURL string `yaml:"base_url"`
}

// TransportConfig configures the WebRTC transport.
type TransportConfig struct {
	// ICEServers lists STUN/TURN URLs used during candidate gathering.
	// Empty means host candidates only.
	ICEServers []string `yaml:"ice_servers"`

	// ICEUsername and ICECredential authenticate against TURN servers.
	ICEUsername   string `yaml:"ice_username"`
	ICECredential string `yaml:"ice_credential"`

	// HandshakeTimeout bounds how long a handshake may wait for the
	// remote side. Links are exchanged by hand, so the default is
	// minutes rather than seconds. Go duration syntax.
	HandshakeTimeout string `yaml:"handshake_timeout"`

	// Reliable selects reliable delivery on the data channel. When
	// false, messages are never retransmitted. Delivery is ordered
	// either way.
	Reliable *bool `yaml:"reliable,omitempty"`

	// TokenCompression selects the signaling token format: "none"
	// (percent-escaped JSON), "cbor", "lz4" or "zstd".
	TokenCompression string `yaml:"token_compression"`
}

// BoardConfig configures the board a host starts with.
type BoardConfig struct {
	// Seed lists note texts added when a session is created.
	Seed []string `yaml:"seed"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the default configuration. Unlike a daemon, a sticky
// peer is usually started ad hoc, so these defaults are a complete
// working configuration.
func Default() *Config {
	reliable := true
	return &Config{
		Environment: Development,
		Share: ShareConfig{
			BaseURL: "${STICKY_BASE_URL:-https://sticky.local/board}",
		},
		Transport: TransportConfig{
			ICEServers:       []string{"stun:stun.l.google.com:19302"},
			HandshakeTimeout: "5m",
			Reliable:         &reliable,
			TokenCompression: "none",
		},
		Board: BoardConfig{
			Seed: []string{"Technical Skills", "Soft Skills", "Domain Knowledge"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the file named by STICKY_CONFIG, or
// returns the defaults when it is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. Files ending
// in .json or .jsonc may contain comments and trailing commas.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a single configuration file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data, err = jsoncToYAML(data)
		if err != nil {
			return err
		}
	}

	return yaml.Unmarshal(data, c)
}

// jsoncToYAML strips comments and trailing commas, then re-encodes the
// document as YAML so the yaml tags on Config apply unchanged. Going
// through a generic value avoids YAML's rejection of tab indentation,
// which is common in hand-written JSON.
func jsoncToYAML(data []byte) ([]byte, error) {
	var document any
	if err := json.Unmarshal(jsonc.ToJSON(data), &document); err != nil {
		return nil, err
	}
	return yaml.Marshal(document)
}

// applyEnvironmentOverrides applies the section matching c.Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Share != nil && overrides.Share.BaseURL != "" {
		c.Share.BaseURL = overrides.Share.BaseURL
	}

	if overrides.Transport != nil {
		if overrides.Transport.ICEServers != nil {
			c.Transport.ICEServers = overrides.Transport.ICEServers
		}
		if overrides.Transport.ICEUsername != "" {
			c.Transport.ICEUsername = overrides.Transport.ICEUsername
		}
		if overrides.Transport.ICECredential != "" {
			c.Transport.ICECredential = overrides.Transport.ICECredential
		}
		if overrides.Transport.HandshakeTimeout != "" {
			c.Transport.HandshakeTimeout = overrides.Transport.HandshakeTimeout
		}
		if overrides.Transport.Reliable != nil {
			c.Transport.Reliable = overrides.Transport.Reliable
		}
		if overrides.Transport.TokenCompression != "" {
			c.Transport.TokenCompression = overrides.Transport.TokenCompression
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in the base URL.
func (c *Config) expandVariables() {
	c.Share.BaseURL = expandVars(c.Share.BaseURL)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// HandshakeTimeoutDuration parses Transport.HandshakeTimeout.
func (c *Config) HandshakeTimeoutDuration() (time.Duration, error) {
	duration, err := time.ParseDuration(c.Transport.HandshakeTimeout)
	if err != nil {
		return 0, fmt.Errorf("transport.handshake_timeout: %w", err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("transport.handshake_timeout must be positive, got %s", duration)
	}
	return duration, nil
}

// IsReliable reports whether the data channel retransmits lost messages.
func (c *Config) IsReliable() bool {
	return c.Transport.Reliable == nil || *c.Transport.Reliable
}

// iceSchemes are the URL schemes of RFC 7064 (STUN) and RFC 7065 (TURN).
var iceSchemes = []string{"stun", "stuns", "turn", "turns"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Share.BaseURL == "" {
		errs = append(errs, fmt.Errorf("share.base_url is required"))
	}

	if _, err := c.HandshakeTimeoutDuration(); err != nil {
		errs = append(errs, err)
	}

	compressions := []string{"none", "cbor", "lz4", "zstd"}
	if !contains(compressions, c.Transport.TokenCompression) {
		errs = append(errs, fmt.Errorf("transport.token_compression must be one of: %v", compressions))
	}

	for _, server := range c.Transport.ICEServers {
		scheme, _, _ := strings.Cut(server, ":")
		if !contains(iceSchemes, scheme) {
			errs = append(errs, fmt.Errorf("transport.ice_servers: %q scheme must be one of: %v", server, iceSchemes))
		}
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !contains(levels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
