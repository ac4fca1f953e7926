package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeMessage_KnownTypes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want MessageType
	}{
		{"ping", `{"type":"ping"}`, MessageTypePing},
		{"pong", `{"type":"pong","ts":1700000000000}`, MessageTypePong},
		{"snapshot", `{"type":"snapshot","documentId":"bmdc-x","snapshot":{"shapes":[]},"version":3,"clientId":"c1"}`, MessageTypeSnapshot},
		{"ack", `{"type":"ack","version":7}`, MessageTypeAck},
		{"error", `{"type":"error","error":"boom"}`, MessageTypeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeMessage([]byte(tt.in))
			if err != nil {
				t.Fatalf("DecodeMessage: %v", err)
			}
			if m.Type != tt.want {
				t.Fatalf("Type = %q, want %q", m.Type, tt.want)
			}
		})
	}
}

func TestDecodeMessage_SnapshotFields(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"type":"snapshot","documentId":"bmdc-x","snapshot":{"a":1},"version":5,"clientId":"peer-1"}`))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if m.DocumentID != "bmdc-x" {
		t.Fatalf("DocumentID = %q", m.DocumentID)
	}
	if m.Version != 5 {
		t.Fatalf("Version = %d, want 5", m.Version)
	}
	if m.ClientID != "peer-1" {
		t.Fatalf("ClientID = %q", m.ClientID)
	}
	if !m.HasSnapshot() {
		t.Fatal("HasSnapshot() = false, want true")
	}
}

func TestDecodeMessage_SnapshotWithoutVersion(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"type":"snapshot","documentId":"bmdc-x","snapshot":{"a":1}}`))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if m.Version != VersionUnknown {
		t.Fatalf("Version = %d, want VersionUnknown", m.Version)
	}
}

func TestDecodeMessage_UnknownType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":"presence","user":"u1"}`))
	if !IsDomainError(err, ErrUnknownMessage.Code) {
		t.Fatalf("err = %v, want ErrUnknownMessage", err)
	}
}

func TestDecodeMessage_Malformed(t *testing.T) {
	for _, in := range []string{"", "not json", `{"type":123}`} {
		if _, err := DecodeMessage([]byte(in)); err == nil {
			t.Fatalf("DecodeMessage(%q) succeeded, want error", in)
		}
	}
}

func TestDecodeMessage_AckWithoutVersion(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":"ack"}`))
	if !IsDomainError(err, ErrMalformedMessage.Code) {
		t.Fatalf("err = %v, want ErrMalformedMessage", err)
	}
}

func TestMessage_EncodeRoundTrip(t *testing.T) {
	snap := json.RawMessage(`{"shapes":["circle"]}`)
	in := NewSnapshot("bmdc-rt", snap, 9, "c9")

	data, err := in.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if out.DocumentID != in.DocumentID || out.Version != in.Version || out.ClientID != in.ClientID {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if string(out.Snapshot) != string(snap) {
		t.Fatalf("Snapshot = %s, want %s", out.Snapshot, snap)
	}
}

func TestMessage_EncodeAckKeepsZeroVersion(t *testing.T) {
	data, err := NewAck(0).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"version":0`) {
		t.Fatalf("encoded ack %s missing version field", data)
	}
}

func TestMessage_EncodeSnapshotOmitsUnknownVersion(t *testing.T) {
	data, err := NewSnapshot("bmdc-x", json.RawMessage(`{}`), VersionUnknown, "").Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(string(data), `"version"`) {
		t.Fatalf("encoded snapshot %s should omit unknown version", data)
	}
}

func TestMessage_HasSnapshot(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"payload", `{"a":1}`, true},
		{"empty", ``, false},
		{"null", `null`, false},
	}
	for _, tt := range tests {
		m := &Message{Type: MessageTypeSnapshot, Snapshot: json.RawMessage(tt.raw)}
		if got := m.HasSnapshot(); got != tt.want {
			t.Fatalf("%s: HasSnapshot() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
