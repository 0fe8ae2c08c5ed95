// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/rianders/sticky-knowledge/board"
	"github.com/rianders/sticky-knowledge/peer"
	"github.com/rianders/sticky-knowledge/session"
	"github.com/rianders/sticky-knowledge/signaling"
	"github.com/rianders/sticky-knowledge/transport"
)

// syncWriter serializes writes from the console and the link signaler,
// which publishes from handshake goroutines.
type syncWriter struct {
	mu     sync.Mutex
	writer io.Writer
}

func (w *syncWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writer.Write(data)
}

type consoleOptions struct {
	BaseURL     string
	Signaler    *transport.LinkSignaler
	Dialer      transport.Dialer
	Acceptor    transport.Acceptor
	Output      io.Writer
	Width       int
	Interactive bool
	Logger      *slog.Logger

	// CopyToClipboard replaces clipboard.WriteAll in tests.
	CopyToClipboard func(string) error
}

// console reads commands line by line and applies them to a session.
type console struct {
	options consoleOptions
	output  io.Writer
	logger  *slog.Logger

	session    *session.Session
	ctx        context.Context
	handshakes sync.WaitGroup
}

func newConsole(options consoleOptions) *console {
	if options.Width <= 0 {
		options.Width = defaultWidth
	}
	if options.CopyToClipboard == nil {
		options.CopyToClipboard = clipboard.WriteAll
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &console{
		options: options,
		output:  options.Output,
		logger:  options.Logger,
	}
}

// stateChanged is the session observer. It only prints: the board is
// rendered in full on "show".
func (c *console) stateChanged(state board.State) {
	c.printf("board updated: %d notes, %s\n", len(state.Notes), state.Digest())
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.output, format, args...)
}

// run prints the session banner, starts the join handshake for a
// participant, and executes commands until quit, end of input, or ctx
// is cancelled.
func (c *console) run(ctx context.Context, room *session.Session, input io.Reader) error {
	defer c.handshakes.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.session = room
	c.ctx = ctx

	c.printf("%s\n", renderBanner(room.Descriptor(), room.PeerID(), c.options.BaseURL))
	if room.Role() == peer.Participant {
		c.startJoin()
	} else {
		c.printf("Run 'invite' for each person joining. Type 'help' for commands.\n")
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		c.prompt()
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if c.execute(line) {
				return nil
			}
		}
	}
}

func (c *console) prompt() {
	if c.options.Interactive {
		c.printf("> ")
	}
}

// execute runs one command line and reports whether the console
// should exit.
func (c *console) execute(line string) bool {
	command, argument, _ := strings.Cut(strings.TrimSpace(line), " ")
	argument = strings.TrimSpace(argument)

	switch strings.ToLower(command) {
	case "":
	case "add":
		c.add(argument)
	case "cat", "categorize":
		c.categorize(argument)
	case "show", "board":
		c.printf("%s\n", renderBoard(c.session.Snapshot(), c.options.Width))
	case "peers":
		c.printf("%s\n", renderPeers(c.session.Peers()))
	case "invite":
		c.invite()
	case "answer", "paste":
		c.deliver(argument)
	case "link":
		c.printf("%s\n", c.session.Descriptor().ShareLink(c.options.BaseURL))
	case "copy":
		c.copyLink()
	case "help", "?":
		c.printf("%s", helpText)
	case "quit", "exit":
		return true
	default:
		c.printf("unknown command %q, type 'help' for commands\n", command)
	}
	return false
}

const helpText = `Commands:
  add <text>                  add a note
  cat <note> <category>       place a note in a quadrant; note is a number or
                              short id from 'show', category is 1-4 or a label
  show                        print the board
  peers                       list connected peers
  invite                      (host) print an invite link for one more person
  answer <link|token>         paste a link or token received from the other side
  link                        print the room's share link
  copy                        copy the share link to the clipboard
  quit                        leave the session
`

func (c *console) add(text string) {
	note, err := c.session.AddNote(text)
	if err != nil {
		c.printf("add: %v\n", err)
		return
	}
	c.printf("added %s: %s\n", shortID(note.ID), note.Text)
}

func (c *console) categorize(argument string) {
	reference, label, ok := strings.Cut(argument, " ")
	if !ok {
		c.printf("usage: cat <note> <category>\n")
		return
	}
	state := c.session.Snapshot()
	note, err := resolveNote(state, reference)
	if err != nil {
		c.printf("cat: %v\n", err)
		return
	}
	category, err := board.ParseCategory(label)
	if err != nil {
		c.printf("cat: %v\n", err)
		return
	}
	if _, err := c.session.Categorize(note.ID, category); err != nil {
		c.printf("cat: %v\n", err)
		return
	}
	c.printf("%q -> %s\n", note.Text, category.Title())
}

func (c *console) invite() {
	if c.session.Role() != peer.Host {
		c.printf("invite: only the host invites; send your answer link to the host instead\n")
		return
	}
	c.handshakes.Add(1)
	go func() {
		defer c.handshakes.Done()
		peerID, err := c.session.Invite(c.ctx, c.options.Dialer)
		if err != nil {
			if !errors.Is(err, session.ErrClosed) && !errors.Is(err, context.Canceled) {
				c.printf("invite failed: %v\n", err)
			}
			return
		}
		c.printf("peer %s connected\n", shortID(peerID))
	}()
}

func (c *console) startJoin() {
	c.handshakes.Add(1)
	go func() {
		defer c.handshakes.Done()
		if err := c.session.Join(c.ctx, c.options.Acceptor); err != nil {
			if !errors.Is(err, session.ErrClosed) && !errors.Is(err, context.Canceled) {
				c.printf("join failed: %v\n", err)
			}
			return
		}
		c.printf("connected to host\n")
	}()
}

func (c *console) deliver(input string) {
	if input == "" {
		c.printf("usage: answer <link|token>\n")
		return
	}
	desc, err := c.options.Signaler.Deliver(input)
	if err != nil {
		c.printf("answer: %v\n", err)
		return
	}
	if desc.Room != c.session.Descriptor().RoomID {
		c.logger.Warn("delivered description for another room", "room", desc.Room)
	}
	kind := "answer"
	if desc.Type == signaling.ModeOffer {
		kind = "invite"
	}
	c.printf("received %s from %s\n", kind, shortID(desc.Peer))
}

func (c *console) copyLink() {
	link := c.session.Descriptor().ShareLink(c.options.BaseURL)
	if err := c.options.CopyToClipboard(link); err != nil {
		c.printf("copy: %v\n%s\n", err, link)
		return
	}
	c.printf("copied %s\n", link)
}

// resolveNote finds a note by its 1-based position in the board or by
// a unique id prefix or suffix (the short id that "show" prints).
func resolveNote(state board.State, reference string) (board.Note, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return board.Note{}, errors.New("empty note reference")
	}
	if index, err := strconv.Atoi(reference); err == nil {
		if index < 1 || index > len(state.Notes) {
			return board.Note{}, fmt.Errorf("note %d out of range (board has %d notes)", index, len(state.Notes))
		}
		return state.Notes[index-1], nil
	}

	var matches []board.Note
	for _, note := range state.Notes {
		if note.ID == reference {
			return note, nil
		}
		if strings.HasPrefix(note.ID, reference) || strings.HasSuffix(note.ID, reference) {
			matches = append(matches, note)
		}
	}
	switch len(matches) {
	case 0:
		return board.Note{}, fmt.Errorf("%w: %s", board.ErrNoteNotFound, reference)
	case 1:
		return matches[0], nil
	default:
		return board.Note{}, fmt.Errorf("note reference %q is ambiguous (%d matches)", reference, len(matches))
	}
}

// shortID returns the last eight characters of id. Note ids are
// UUIDv7, whose leading characters are a timestamp shared by every
// note made in the same minute; the tail is random.
func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
