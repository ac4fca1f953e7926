// Package domain defines the core domain models for BoardMesh.
package domain

import (
	"encoding/json"
	"time"
)

// MessageType identifies a wire frame variant.
type MessageType string

// The closed set of wire frame types. Frames carrying any other tag
// are rejected at decode time rather than probed field by field.
const (
	MessageTypePing     MessageType = "ping"
	MessageTypePong     MessageType = "pong"
	MessageTypeSnapshot MessageType = "snapshot"
	MessageTypeAck      MessageType = "ack"
	MessageTypeError    MessageType = "error"
)

// VersionUnknown marks a snapshot frame that carries no version,
// e.g. a cold-start publish from a peer that has never synced.
const VersionUnknown int64 = -1

// Message is a decoded wire frame. Exactly one frame per WebSocket
// message. Messages are immutable once constructed.
type Message struct {
	Type MessageType

	// DocumentID, Snapshot, Version and ClientID are set for
	// snapshot frames. Version is VersionUnknown when the sender
	// did not supply one.
	DocumentID string
	Snapshot   json.RawMessage
	Version    int64
	ClientID   string

	// TS is set for pong frames (Unix milliseconds).
	TS int64

	// Error is set for error frames.
	Error string
}

// wireFrame is the JSON layout shared by all frame types.
type wireFrame struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
	Version    *int64          `json:"version,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	TS         int64           `json:"ts,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// NewPing creates a ping frame.
func NewPing() *Message {
	return &Message{Type: MessageTypePing}
}

// NewPong creates a pong frame stamped with the current time.
func NewPong() *Message {
	return &Message{Type: MessageTypePong, TS: time.Now().UnixMilli()}
}

// NewSnapshot creates a snapshot frame.
func NewSnapshot(documentID string, snapshot json.RawMessage, version int64, clientID string) *Message {
	return &Message{
		Type:       MessageTypeSnapshot,
		DocumentID: documentID,
		Snapshot:   snapshot,
		Version:    version,
		ClientID:   clientID,
	}
}

// NewAck creates an ack frame for an accepted write.
func NewAck(version int64) *Message {
	return &Message{Type: MessageTypeAck, Version: version}
}

// NewError creates an error frame.
func NewError(reason string) *Message {
	return &Message{Type: MessageTypeError, Error: reason}
}

// HasSnapshot reports whether a snapshot frame carries a payload.
// A missing payload and a JSON null are both treated as empty.
func (m *Message) HasSnapshot() bool {
	return len(m.Snapshot) > 0 && string(m.Snapshot) != "null"
}

// Encode serializes the message as a single JSON frame.
func (m *Message) Encode() ([]byte, error) {
	f := wireFrame{
		Type:       string(m.Type),
		DocumentID: m.DocumentID,
		Snapshot:   m.Snapshot,
		ClientID:   m.ClientID,
		TS:         m.TS,
		Error:      m.Error,
	}

	// Version is meaningful only on snapshot and ack frames, and 0 is
	// a valid value there, so it is emitted through a pointer.
	switch m.Type {
	case MessageTypeSnapshot:
		if m.Version != VersionUnknown {
			v := m.Version
			f.Version = &v
		}
	case MessageTypeAck:
		v := m.Version
		f.Version = &v
	}

	return json.Marshal(f)
}

// DecodeMessage parses a wire frame into a typed message.
//
// Only the closed set of known tags is accepted; anything else fails
// with ErrUnknownMessage so that callers can drop it without tearing
// down the connection.
func DecodeMessage(data []byte) (*Message, error) {
	var f wireFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, ErrMalformedMessage.WithCause(err)
	}

	switch MessageType(f.Type) {
	case MessageTypePing:
		return &Message{Type: MessageTypePing}, nil

	case MessageTypePong:
		return &Message{Type: MessageTypePong, TS: f.TS}, nil

	case MessageTypeSnapshot:
		m := &Message{
			Type:       MessageTypeSnapshot,
			DocumentID: f.DocumentID,
			Snapshot:   f.Snapshot,
			Version:    VersionUnknown,
			ClientID:   f.ClientID,
		}
		if f.Version != nil {
			m.Version = *f.Version
		}
		return m, nil

	case MessageTypeAck:
		if f.Version == nil {
			return nil, ErrMalformedMessage.WithDetails("ack frame without version")
		}
		return &Message{Type: MessageTypeAck, Version: *f.Version}, nil

	case MessageTypeError:
		return &Message{Type: MessageTypeError, Error: f.Error}, nil

	default:
		return nil, ErrUnknownMessage.WithDetails("type: " + f.Type)
	}
}
