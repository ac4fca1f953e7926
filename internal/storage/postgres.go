package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
)

// PostgresStore persists documents in PostgreSQL via a pgx pool.
//
// The version increment is expressed in the upsert itself, so
// concurrent writers are serialized by the row lock and versions
// stay gapless without application-side retries.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPostgresStore connects to PostgreSQL and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string, log logger.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	if log == nil {
		log = logger.Default()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	store := &PostgresStore{pool: pool, log: log}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("postgres store started")
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			snapshot   BYTEA NOT NULL,
			version    BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// Get retrieves a document by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	const query = `SELECT snapshot, version, updated_at FROM documents WHERE id = $1`

	doc := &domain.Document{ID: id}
	err := s.pool.QueryRow(ctx, query, id).Scan(&doc.Snapshot, &doc.Version, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("postgres: get %s: %w", id, err)
	}
	return doc, nil
}

// Save replaces the snapshot and assigns the next version atomically.
func (s *PostgresStore) Save(ctx context.Context, id string, snapshot []byte) (int64, error) {
	const query = `
		INSERT INTO documents (id, snapshot, version, updated_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (id) DO UPDATE SET
			snapshot   = EXCLUDED.snapshot,
			version    = documents.version + 1,
			updated_at = EXCLUDED.updated_at
		RETURNING version`

	var version int64
	err := s.pool.QueryRow(ctx, query, id, snapshot, time.Now().UnixMilli()).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("postgres: save %s: %w", id, err)
	}
	return version, nil
}

// Version returns the current version of a document.
func (s *PostgresStore) Version(ctx context.Context, id string) (int64, error) {
	const query = `SELECT version FROM documents WHERE id = $1`

	var version int64
	err := s.pool.QueryRow(ctx, query, id).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrDocumentNotFound
		}
		return 0, fmt.Errorf("postgres: version %s: %w", id, err)
	}
	return version, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	s.log.Info("postgres store closed")
	return nil
}
