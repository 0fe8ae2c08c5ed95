// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statesync

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rianders/sticky-knowledge/board"
)

var (
	// ErrMalformedMessage is returned by Decode for payloads that are
	// not a JSON object or whose body does not match its type.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownMessage is returned by Decode for a well-formed object
	// whose type is missing or not one this version understands.
	ErrUnknownMessage = errors.New("unknown message type")
)

// MessageType discriminates wire messages.
type MessageType string

const (
	// TypeRequestState asks the host for its current state.
	TypeRequestState MessageType = "requestState"

	// TypeState carries a complete board snapshot.
	TypeState MessageType = "state"
)

// Message is a decoded wire message. State is set only for TypeState.
type Message struct {
	Type  MessageType
	State board.State
}

type envelope struct {
	Type MessageType `json:"type"`
}

// stateMessage is the TypeState wire form:
// {"type":"state","templates":[...],"categorizedNotes":{...}}.
type stateMessage struct {
	Type MessageType `json:"type"`
	board.State
}

// EncodeRequestState returns the requestState message.
func EncodeRequestState() []byte {
	return []byte(`{"type":"` + string(TypeRequestState) + `"}`)
}

// EncodeState returns a state message carrying state, normalized so
// empty collections appear as [] and {} rather than null.
func EncodeState(state board.State) ([]byte, error) {
	state = state.Clone()
	state.Normalize()
	data, err := json.Marshal(stateMessage{Type: TypeState, State: state})
	if err != nil {
		return nil, fmt.Errorf("encoding state message: %w", err)
	}
	return data, nil
}

// Decode reads the discriminant and then the body it selects. State
// bodies are returned as received; validation is the caller's
// decision.
func Decode(data []byte) (Message, error) {
	var head envelope
	if err := json.Unmarshal(data, &head); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch head.Type {
	case TypeRequestState:
		return Message{Type: TypeRequestState}, nil
	case TypeState:
		var body stateMessage
		if err := json.Unmarshal(data, &body); err != nil {
			return Message{}, fmt.Errorf("%w: state body: %v", ErrMalformedMessage, err)
		}
		return Message{Type: TypeState, State: body.State}, nil
	case "":
		return Message{}, fmt.Errorf("%w: no type field", ErrUnknownMessage)
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessage, head.Type)
	}
}
