// Package service provides domain services for BoardMesh.
//
// DocumentService handles all whiteboard document operations.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// DocumentRepository defines the storage interface for document snapshots.
type DocumentRepository interface {
	// Get retrieves a document by ID.
	// Returns domain.ErrDocumentNotFound when the document has never been saved.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Save replaces the document's snapshot and atomically assigns the
	// next version number. Returns the newly assigned version.
	Save(ctx context.Context, id string, snapshot []byte) (int64, error)

	// Version returns the current version of a document.
	// Returns domain.ErrDocumentNotFound when the document has never been saved.
	Version(ctx context.Context, id string) (int64, error)
}

// DocumentService handles document read and write operations.
//
// Every write path in the server (WebSocket sync and HTTP PUT) goes
// through this service, so validation and the size cap are enforced
// identically regardless of transport.
type DocumentService struct {
	repo     DocumentRepository
	maxBytes int64
}

// NewDocumentService creates a new DocumentService.
// maxSnapshotBytes <= 0 selects the default cap of domain.MaxSnapshotBytes.
func NewDocumentService(repo DocumentRepository, maxSnapshotBytes int64) *DocumentService {
	if maxSnapshotBytes <= 0 {
		maxSnapshotBytes = domain.MaxSnapshotBytes
	}
	return &DocumentService{
		repo:     repo,
		maxBytes: maxSnapshotBytes,
	}
}

// MaxSnapshotBytes returns the configured snapshot size cap.
func (s *DocumentService) MaxSnapshotBytes() int64 {
	return s.maxBytes
}

// ============================================================================
// Document Get Operation
// ============================================================================

// GetDocumentResponse contains the result of a document read.
type GetDocumentResponse struct {
	Document *domain.Document
}

// Get retrieves a document by ID.
//
// A document that has never been written is returned as an empty
// document at version zero rather than an error, so clients joining
// a fresh board see a consistent starting state.
func (s *DocumentService) Get(ctx context.Context, id string) (*GetDocumentResponse, error) {
	// 1. Validate the document ID
	if err := domain.ValidateDocumentID(id); err != nil {
		return nil, err
	}

	// 2. Fetch from storage; absent means a fresh board
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return &GetDocumentResponse{Document: domain.NewEmpty(id)}, nil
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}

	return &GetDocumentResponse{Document: doc}, nil
}

// Version returns the current version of a document.
// Never-written documents report version zero.
func (s *DocumentService) Version(ctx context.Context, id string) (int64, error) {
	if err := domain.ValidateDocumentID(id); err != nil {
		return 0, err
	}

	version, err := s.repo.Version(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return 0, nil
		}
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return version, nil
}

// ============================================================================
// Snapshot Save Operation
// ============================================================================

// SaveSnapshotRequest contains parameters for a snapshot write.
type SaveSnapshotRequest struct {
	DocumentID string
	Snapshot   []byte // Full document state, JSON-encoded
}

// SaveSnapshotResponse contains the result of a snapshot write.
type SaveSnapshotResponse struct {
	Version int64 // The newly assigned version
}

// Save validates and persists a whole-document snapshot.
//
// The snapshot replaces whatever was stored before; there is no
// merging. Versions are assigned by storage and strictly increase.
func (s *DocumentService) Save(ctx context.Context, req *SaveSnapshotRequest) (*SaveSnapshotResponse, error) {
	// 1. Validate the document ID
	if err := domain.ValidateDocumentID(req.DocumentID); err != nil {
		return nil, err
	}

	// 2. Reject empty payloads; an empty board is still "{}" or "[]"
	if len(req.Snapshot) == 0 {
		return nil, domain.ErrEmptySnapshot
	}

	// 3. Enforce the size cap before touching storage
	if int64(len(req.Snapshot)) > s.maxBytes {
		return nil, domain.ErrSnapshotTooLarge.WithDetails(
			fmt.Sprintf("snapshot is %d bytes (max %d)", len(req.Snapshot), s.maxBytes),
		)
	}

	// 4. The payload is opaque to the server but must be well-formed JSON
	if !json.Valid(req.Snapshot) {
		return nil, domain.ErrMalformedMessage.WithDetails("snapshot is not valid JSON")
	}

	// 5. Persist; storage assigns the next version atomically
	version, err := s.repo.Save(ctx, req.DocumentID, req.Snapshot)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	return &SaveSnapshotResponse{Version: version}, nil
}
