// Package domain defines the core domain models for BoardMesh.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling.
package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Document constraints.
const (
	// MaxSnapshotBytes caps the serialized snapshot size. The cap is
	// enforced identically on the WebSocket path and the REST fallback.
	MaxSnapshotBytes = 8 << 20 // 8 MiB

	// MaxDocumentIDLength bounds externally supplied document ids.
	MaxDocumentIDLength = 128

	// DocumentIDPrefix is the prefix for generated document ids.
	DocumentIDPrefix = "bmdc-"

	// ConnectionIDPrefix is the prefix for connection ids.
	ConnectionIDPrefix = "bmcn-"
)

// Document is a shared, versioned whiteboard document.
//
// The snapshot is an opaque serialized blob; BoardMesh transports and
// versions it but never interprets its contents. Version starts at 0
// for a document that has never been written and increases by exactly
// one per accepted write. Writers never decrease it.
type Document struct {
	// ID is the opaque document identifier.
	ID string `json:"id"`

	// Snapshot is the full serialized document state. Empty for a
	// document that has never been written.
	Snapshot []byte `json:"snapshot,omitempty"`

	// Version is the monotonically increasing write counter.
	Version int64 `json:"version"`

	// UpdatedAt is the timestamp of the last accepted write
	// (Unix milliseconds), 0 if never written.
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

// NewEmpty returns the canonical state of a document that has never
// been written: no snapshot, version zero.
func NewEmpty(id string) *Document {
	return &Document{ID: id}
}

// Empty reports whether the document has never been written.
func (d *Document) Empty() bool {
	return d.Version == 0 && len(d.Snapshot) == 0
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	if d.Snapshot != nil {
		c.Snapshot = make([]byte, len(d.Snapshot))
		copy(c.Snapshot, d.Snapshot)
	}
	return &c
}

// ValidateDocumentID checks an externally supplied document id.
func ValidateDocumentID(id string) error {
	if id == "" {
		return ErrMissingArgument.WithDetails("document id is required")
	}
	if len(id) > MaxDocumentIDLength {
		return ErrInvalidArgument.WithDetails("document id too long")
	}
	return nil
}

// GenerateDocumentID generates a new document id using ULID.
// Format: bmdc-{ulid_lowercase}.
func GenerateDocumentID() (string, error) {
	return generateID(DocumentIDPrefix)
}

// GenerateConnectionID generates a new connection id using ULID.
// Format: bmcn-{ulid_lowercase}.
func GenerateConnectionID() (string, error) {
	return generateID(ConnectionIDPrefix)
}

func generateID(prefix string) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return prefix + strings.ToLower(id.String()), nil
}
