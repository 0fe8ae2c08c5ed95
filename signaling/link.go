// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedLink is returned by ParseLink for input that is not a
// board link.
var ErrMalformedLink = errors.New("malformed board link")

// Query parameter names used in board links.
const (
	RoomParam   = "room"
	OfferParam  = "offer"
	AnswerParam = "answer"
)

// Link is the parsed form of a board link. Offer and Answer hold the
// raw token values (already query-unescaped) and are empty when the
// link carries none.
type Link struct {
	Base   string
	Room   string
	Offer  string
	Answer string
}

// ShareLink returns "<base>?room=<room>".
func ShareLink(base, room string) string {
	return appendParam(base, RoomParam, url.QueryEscape(room))
}

// OfferLink returns a share link carrying an offer token.
func OfferLink(base, room, token string) string {
	return appendParam(ShareLink(base, room), OfferParam, token)
}

// AnswerLink returns a share link carrying an answer token.
func AnswerLink(base, room, token string) string {
	return appendParam(ShareLink(base, room), AnswerParam, token)
}

// LinkFor returns the link that carries token for desc's room, with
// the parameter chosen by desc.Type.
func LinkFor(base string, desc Description, token string) string {
	if desc.Type == ModeAnswer {
		return AnswerLink(base, desc.Room, token)
	}
	return OfferLink(base, desc.Room, token)
}

// appendParam adds an already-escaped parameter. Tokens are URL-safe
// by construction, so escaping them again would only bloat the link.
func appendParam(base, name, escapedValue string) string {
	separator := "?"
	if strings.Contains(base, "?") {
		separator = "&"
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			separator = ""
		}
	}
	return base + separator + name + "=" + escapedValue
}

// ParseLink extracts the room and any handshake token from a board
// link. It performs no network access and does not decode the tokens.
func ParseLink(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrMalformedLink, err)
	}
	query, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrMalformedLink, err)
	}

	room := query.Get(RoomParam)
	if room == "" {
		return Link{}, fmt.Errorf("%w: no %s parameter in %q", ErrMalformedLink, RoomParam, raw)
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	return Link{
		Base:   parsed.String(),
		Room:   room,
		Offer:  query.Get(OfferParam),
		Answer: query.Get(AnswerParam),
	}, nil
}

// IsLink reports whether input looks like a link rather than a bare
// token. Bare tokens never contain a query separator.
func IsLink(input string) bool {
	input = strings.TrimSpace(input)
	return strings.Contains(input, "?"+RoomParam+"=") || strings.Contains(input, "&"+RoomParam+"=")
}

// DecodeInput accepts a pasted link or a bare token and returns the
// description it carries. A link must carry exactly one of offer or
// answer.
func DecodeInput(input string) (Description, error) {
	if !IsLink(input) {
		return Decode(input)
	}
	link, err := ParseLink(input)
	if err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var token string
	switch {
	case link.Offer != "" && link.Answer != "":
		return Description{}, fmt.Errorf("%w: link carries both an offer and an answer", ErrMalformedToken)
	case link.Offer != "":
		token = link.Offer
	case link.Answer != "":
		token = link.Answer
	default:
		return Description{}, fmt.Errorf("%w: link carries no offer or answer", ErrMalformedToken)
	}

	desc, err := Decode(token)
	if err != nil {
		return Description{}, err
	}
	if desc.Room != link.Room {
		return Description{}, fmt.Errorf("%w: token room %q does not match link room %q", ErrMalformedToken, desc.Room, link.Room)
	}
	return desc, nil
}
