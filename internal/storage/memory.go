package storage

import (
	"context"
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/pkg/cmap"
)

// MemoryStore is an in-process document store.
//
// Used for tests and single-node development. Documents are held in a
// sharded concurrent map; the version increment runs under the shard
// lock, so it is atomic per document.
type MemoryStore struct {
	docs *cmap.Map[string, *domain.Document]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: cmap.New[string, *domain.Document](),
	}
}

// Get retrieves a document by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, ok := s.docs.Get(id)
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

// Save replaces the snapshot and assigns the next version atomically.
func (s *MemoryStore) Save(ctx context.Context, id string, snapshot []byte) (int64, error) {
	stored := s.docs.Update(id, func(doc *domain.Document, exists bool) *domain.Document {
		next := &domain.Document{
			ID:        id,
			Snapshot:  append([]byte(nil), snapshot...),
			Version:   1,
			UpdatedAt: time.Now().UnixMilli(),
		}
		if exists {
			next.Version = doc.Version + 1
		}
		return next
	})
	return stored.Version, nil
}

// Version returns the current version of a document.
func (s *MemoryStore) Version(ctx context.Context, id string) (int64, error) {
	doc, ok := s.docs.Get(id)
	if !ok {
		return 0, domain.ErrDocumentNotFound
	}
	return doc.Version, nil
}

// Count returns the number of stored documents.
func (s *MemoryStore) Count() int {
	return s.docs.Count()
}

// Close is a no-op; MemoryStore holds no external resources.
func (s *MemoryStore) Close() error {
	return nil
}
