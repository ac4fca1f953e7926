package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
	"github.com/yndnr/boardmesh-go/pkg/crypto/adaptive"
)

// docKeyPrefix namespaces document records in the KV keyspace.
const docKeyPrefix = "doc:"

// recordHeaderSize is version (8) + updated_at (8) in big-endian.
const recordHeaderSize = 16

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// Dir is the storage directory.
	Dir string

	// EncryptionKey is an optional 64-char hex key. When set, stored
	// records are sealed with AES-GCM or ChaCha20-Poly1305 depending
	// on hardware support.
	EncryptionKey string

	// GCInterval is the interval between value-log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// SyncWrites enables fsync after each write.
	// Default: true; snapshots are the only durable copy.
	SyncWrites bool
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		SyncWrites:  true,
	}
}

// BadgerStore persists documents in an embedded Badger v3 database.
//
// Each document is one record: a fixed binary header (version,
// updated-at) followed by the snapshot bytes. When encryption is
// configured the whole record is sealed with the document ID as
// additional data, so records cannot be swapped between documents.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	cipher adaptive.Cipher
	log    logger.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerStore opens (or creates) a Badger-backed document store.
func NewBadgerStore(cfg BadgerConfig, log logger.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if log == nil {
		log = logger.Default()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 {
		cfg.GCThreshold = 0.5
	}

	var cipher adaptive.Cipher
	if cfg.EncryptionKey != "" {
		var err error
		cipher, err = adaptive.NewFromHex(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("badger: encryption key: %w", err)
		}
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{log: log}
	opts.SyncWrites = cfg.SyncWrites
	// Save retries on conflict instead of relying on Badger's detector.
	opts.DetectConflicts = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	store := &BadgerStore{
		db:     db,
		cfg:    cfg,
		cipher: cipher,
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go store.gcLoop()

	log.Info("badger store started",
		"dir", cfg.Dir,
		"encrypted", cipher != nil,
		"gc_interval", cfg.GCInterval.String())

	return store, nil
}

// Get retrieves a document by ID.
func (s *BadgerStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	var record []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrDocumentNotFound
			}
			return err
		}
		record, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("badger: get %s: %w", id, err)
	}

	return s.decodeRecord(id, record)
}

// Save replaces the snapshot and assigns the next version.
//
// The read-increment-write runs inside one transaction; on a write
// conflict with a concurrent Save the transaction is retried, so the
// assigned versions stay gapless.
func (s *BadgerStore) Save(ctx context.Context, id string, snapshot []byte) (int64, error) {
	for {
		var version int64
		err := s.db.Update(func(txn *badger.Txn) error {
			version = 1
			item, err := txn.Get(docKey(id))
			switch {
			case err == nil:
				record, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				doc, err := s.decodeRecord(id, record)
				if err != nil {
					return err
				}
				version = doc.Version + 1
			case errors.Is(err, badger.ErrKeyNotFound):
				// First write, version stays 1
			default:
				return err
			}

			record, err := s.encodeRecord(id, &domain.Document{
				ID:        id,
				Snapshot:  snapshot,
				Version:   version,
				UpdatedAt: time.Now().UnixMilli(),
			})
			if err != nil {
				return err
			}
			return txn.Set(docKey(id), record)
		})
		if err == nil {
			return version, nil
		}
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return 0, fmt.Errorf("badger: save %s: %w", id, err)
	}
}

// Version returns the current version of a document.
func (s *BadgerStore) Version(ctx context.Context, id string) (int64, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return doc.Version, nil
}

// Close stops the GC loop and closes the database.
func (s *BadgerStore) Close() error {
	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badger: close db: %w", err)
	}
	s.log.Info("badger store closed")
	return nil
}

// rawRecord returns the stored record bytes without decryption.
// Used by tests to verify the at-rest format.
func (s *BadgerStore) rawRecord(id string) ([]byte, error) {
	var record []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(id))
		if err != nil {
			return err
		}
		record, err = item.ValueCopy(nil)
		return err
	})
	return record, err
}

func docKey(id string) []byte {
	return []byte(docKeyPrefix + id)
}

func (s *BadgerStore) encodeRecord(id string, doc *domain.Document) ([]byte, error) {
	record := make([]byte, recordHeaderSize+len(doc.Snapshot))
	binary.BigEndian.PutUint64(record[0:8], uint64(doc.Version))
	binary.BigEndian.PutUint64(record[8:16], uint64(doc.UpdatedAt))
	copy(record[recordHeaderSize:], doc.Snapshot)

	if s.cipher == nil {
		return record, nil
	}
	sealed, err := s.cipher.Encrypt(record, []byte(id))
	if err != nil {
		return nil, fmt.Errorf("seal record: %w", err)
	}
	return sealed, nil
}

func (s *BadgerStore) decodeRecord(id string, record []byte) (*domain.Document, error) {
	if s.cipher != nil {
		opened, err := s.cipher.Decrypt(record, []byte(id))
		if err != nil {
			return nil, fmt.Errorf("open record %s: %w", id, err)
		}
		record = opened
	}
	if len(record) < recordHeaderSize {
		return nil, fmt.Errorf("record %s: truncated (%d bytes)", id, len(record))
	}

	doc := &domain.Document{
		ID:        id,
		Version:   int64(binary.BigEndian.Uint64(record[0:8])),
		UpdatedAt: int64(binary.BigEndian.Uint64(record[8:16])),
	}
	if len(record) > recordHeaderSize {
		doc.Snapshot = append([]byte(nil), record[recordHeaderSize:]...)
	}
	return doc, nil
}

// gcLoop runs periodic value-log garbage collection.
func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				err := s.db.RunValueLogGC(s.cfg.GCThreshold)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						s.log.Error("badger gc failed", "error", err)
					}
					break
				}
			}
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
