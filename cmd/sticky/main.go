// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/rianders/sticky-knowledge/lib/config"
	"github.com/rianders/sticky-knowledge/lib/process"
	"github.com/rianders/sticky-knowledge/lib/version"
	"github.com/rianders/sticky-knowledge/session"
	"github.com/rianders/sticky-knowledge/signaling"
	"github.com/rianders/sticky-knowledge/transport"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		process.Fatal(err)
	}
}

// options holds the parsed command line.
type options struct {
	configPath  string
	baseURL     string
	verbose     bool
	showVersion bool
	command     string
	link        string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var parsed options
	flagSet := pflag.NewFlagSet("sticky", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&parsed.configPath, "config", "", "path to config file (default: $"+config.EnvVar+", else built-in defaults)")
	flagSet.StringVar(&parsed.baseURL, "base-url", "", "base URL for shareable links (overrides share.base_url)")
	flagSet.BoolVarP(&parsed.verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&parsed.showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() { printHelp(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if parsed.showVersion {
		return parsed, nil
	}

	positional := flagSet.Args()
	if len(positional) == 0 {
		printHelp(stderr, flagSet)
		return options{}, errors.New("missing command: host or join")
	}
	parsed.command = positional[0]
	switch parsed.command {
	case "host":
		if len(positional) > 1 {
			return options{}, fmt.Errorf("host takes no arguments, got %q", positional[1])
		}
	case "join":
		if len(positional) != 2 {
			return options{}, errors.New("usage: sticky join <link>")
		}
		parsed.link = positional[1]
	default:
		return options{}, fmt.Errorf("unknown command %q (want host or join)", parsed.command)
	}
	return parsed, nil
}

func printHelp(output io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(output, `sticky shares a board of sticky notes between peers over WebRTC.

One person hosts a room and sends its link to others. Connection
setup travels inside links too: the host runs "invite" and sends the
invite link, the joiner runs "sticky join <invite link>" and sends
back the answer link it prints, and the host pastes that with
"answer <link>".

Usage:
  sticky [flags] host
  sticky [flags] join <link>

Flags:
`)
	flagSet.PrintDefaults()
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	parsed, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if parsed.showVersion {
		version.Print(stdout, "sticky")
		return nil
	}

	cfg, err := loadConfig(parsed)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, parsed.verbose, stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Piped output gets plain text so links stay copyable.
	if !isTerminal(stdout) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	output := &syncWriter{writer: stdout}
	compression, err := signaling.ParseCompression(cfg.Transport.TokenCompression)
	if err != nil {
		return err
	}
	signaler := transport.NewLinkSignaler(cfg.Share.BaseURL, signaling.Codec{Compression: compression}, output)
	webrtcTransport, err := newTransport(cfg, signaler, logger)
	if err != nil {
		return err
	}
	defer webrtcTransport.Close()

	descriptor, err := resolveDescriptor(parsed, signaler)
	if err != nil {
		return err
	}

	terminal := newConsole(consoleOptions{
		BaseURL:     cfg.Share.BaseURL,
		Signaler:    signaler,
		Dialer:      webrtcTransport,
		Acceptor:    webrtcTransport,
		Output:      output,
		Width:       terminalWidth(stdout),
		Interactive: isTerminal(stdin),
		Logger:      logger,
	})

	room, err := session.New(descriptor, session.Options{
		Seed:           cfg.Board.Seed,
		OnStateChanged: terminal.stateChanged,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer room.Close()

	logger.Info("session started",
		"version", version.Info(),
		"role", string(room.Role()),
		"room", descriptor.RoomID,
		"peer", room.PeerID(),
	)
	return terminal.run(ctx, room, stdin)
}

// loadConfig loads the file named by --config or $STICKY_CONFIG, then
// applies command-line overrides.
func loadConfig(parsed options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if parsed.configPath != "" {
		cfg, err = config.LoadFile(parsed.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if parsed.baseURL != "" {
		cfg.Share.BaseURL = parsed.baseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs go to stderr so they do
// not interleave with the board and links on stdout.
func newLogger(logConfig config.LogConfig, verbose bool, stderr io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logConfig.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if logConfig.Format == "json" {
		handler = slog.NewJSONHandler(stderr, handlerOptions)
	} else {
		handler = slog.NewTextHandler(stderr, handlerOptions)
	}
	return slog.New(handler)
}

func newTransport(cfg *config.Config, signaler transport.Signaler, logger *slog.Logger) (*transport.WebRTCTransport, error) {
	timeout, err := cfg.HandshakeTimeoutDuration()
	if err != nil {
		return nil, err
	}
	return transport.NewWebRTCTransport(signaler, transport.Options{
		ICE:              transport.ICEConfigFromURLs(cfg.Transport.ICEServers, cfg.Transport.ICEUsername, cfg.Transport.ICECredential),
		Reliable:         cfg.IsReliable(),
		HandshakeTimeout: timeout,
		Logger:           logger,
	}), nil
}

// resolveDescriptor creates a room for host, or resolves the room named
// by the join link. An offer carried by the link is handed to the
// signaler so the join handshake can start at once.
func resolveDescriptor(parsed options, signaler *transport.LinkSignaler) (session.Descriptor, error) {
	if parsed.command == "host" {
		return session.CreateSession()
	}

	link, err := signaling.ParseLink(parsed.link)
	if err != nil {
		return session.Descriptor{}, err
	}
	descriptor, err := session.ResolveSession(link.Room)
	if err != nil {
		return session.Descriptor{}, err
	}
	if link.Offer != "" {
		if _, err := signaler.Deliver(parsed.link); err != nil {
			return session.Descriptor{}, fmt.Errorf("reading invite: %w", err)
		}
	}
	return descriptor, nil
}

func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

func terminalWidth(writer io.Writer) int {
	if file, ok := writer.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}
