package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yndnr/boardmesh-go/pkg/token"
)

// Sentinel errors surfaced to the caller.
var (
	// ErrSnapshotTooLarge means the captured document exceeds the
	// server's snapshot cap; the flush was skipped, nothing was sent.
	ErrSnapshotTooLarge = errors.New("reconcile: snapshot exceeds size cap, flush skipped")

	// ErrPermissionDenied means the server refused the write. The
	// document stays dirty but is not retried automatically.
	ErrPermissionDenied = errors.New("reconcile: permission denied")

	// ErrNoCapture means a flush was requested but no Capture callback
	// is configured.
	ErrNoCapture = errors.New("reconcile: no Capture callback configured")
)

// Default tuning values.
const (
	DefaultResyncInterval   = 30 * time.Second
	DefaultFlushTimeout     = 10 * time.Second
	DefaultMaxSnapshotBytes = 8 << 20
)

// Config configures a Reconciler.
type Config struct {
	// ServerURL is the BoardMesh server base URL, e.g. "http://localhost:5480".
	ServerURL string

	// DocumentID is the document to synchronize.
	DocumentID string

	// Token is the bearer token presented on every request.
	Token string

	// ClientID identifies this client for echo suppression. Defaults
	// to a random UUID.
	ClientID string

	// Apply is invoked with every remote snapshot that passes the
	// staleness checks. The reconciler only hands over the blob; the
	// caller owns rendering and view state. Mutated() calls made from
	// inside Apply are ignored.
	Apply func(snapshot []byte, version int64)

	// Capture returns the current local document for flushing. A
	// read-only watcher may leave it nil.
	Capture func() ([]byte, error)

	// OnError receives asynchronous errors (server error frames,
	// rejected background flushes). Optional.
	OnError func(error)

	// ResyncInterval is the version poll period. Defaults to 30s.
	ResyncInterval time.Duration

	// FlushTimeout bounds the wait for a WebSocket ack. Defaults to 10s.
	FlushTimeout time.Duration

	// MaxSnapshotBytes mirrors the server cap so oversized documents
	// are skipped locally instead of bouncing off the server.
	MaxSnapshotBytes int64

	// HTTPClient is used for the REST fallback and resync polls.
	HTTPClient *http.Client

	// Dialer is used for the WebSocket connection.
	Dialer *websocket.Dialer

	// Logger for diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Reconciler keeps a local document converged with the server copy:
// it applies remote snapshots through the Apply callback, flushes local
// edits at interaction boundaries, and self-heals missed updates with a
// periodic version poll.
type Reconciler struct {
	cfg   Config
	log   *slog.Logger
	httpc *http.Client
	dial  *websocket.Dialer

	mu          sync.Mutex
	state       flushState
	flushQueued bool
	applying    bool
	lastVersion int64
	fingerprint string
	retryable   bool

	connMu  sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	ackCh   chan int64
}

// New creates a Reconciler. The zero values of optional Config fields
// are filled with defaults.
func New(cfg Config) (*Reconciler, error) {
	if cfg.ServerURL == "" {
		return nil, errors.New("reconcile: ServerURL is required")
	}
	if cfg.DocumentID == "" {
		return nil, errors.New("reconcile: DocumentID is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = DefaultResyncInterval
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultFlushTimeout
	}
	if cfg.MaxSnapshotBytes <= 0 {
		cfg.MaxSnapshotBytes = DefaultMaxSnapshotBytes
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Reconciler{
		cfg:   cfg,
		log:   cfg.Logger.With("document_id", cfg.DocumentID, "client_id", cfg.ClientID),
		httpc: cfg.HTTPClient,
		dial:  cfg.Dialer,
		ackCh: make(chan int64, 8),
	}, nil
}

// ClientID returns the identifier this reconciler stamps on outbound
// snapshots.
func (r *Reconciler) ClientID() string {
	return r.cfg.ClientID
}

// Version returns the highest version applied or acknowledged so far.
func (r *Reconciler) Version() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastVersion
}

// Mutated records a local edit. Call it on every change; the reconciler
// coalesces them and sends nothing until an interaction boundary.
// Calls made while a remote snapshot is being applied are ignored so
// that applying never marks the document dirty.
func (r *Reconciler) Mutated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applying {
		return
	}
	r.retryable = true
	switch r.state {
	case stateIdle:
		r.state = stateDirty
	case stateFlushing:
		r.flushQueued = true
	}
}

// InteractionEnded marks an interaction boundary (pointer up, blur,
// debounce expiry) and flushes if the document is dirty. A boundary
// reached while a flush is in flight queues exactly one rerun. Clean
// documents are a no-op.
//
// Transient network failures return nil: the document stays dirty and
// is retried at the next boundary or resync tick. ErrPermissionDenied
// and ErrSnapshotTooLarge are returned to the caller and not retried
// automatically.
func (r *Reconciler) InteractionEnded(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case stateIdle:
		r.mu.Unlock()
		return nil
	case stateFlushing:
		r.flushQueued = true
		r.mu.Unlock()
		return nil
	}
	r.state = stateFlushing
	r.mu.Unlock()

	return r.flush(ctx)
}

// flush captures the document and pushes it to the server, rerunning
// once when a mutation or boundary arrived while the send was in
// flight. The caller must have moved state to Flushing.
func (r *Reconciler) flush(ctx context.Context) error {
	for {
		if r.cfg.Capture == nil {
			r.completeFlush(false)
			return ErrNoCapture
		}
		snapshot, err := r.cfg.Capture()
		if err != nil {
			r.completeFlush(false)
			return fmt.Errorf("reconcile: capture: %w", err)
		}

		if int64(len(snapshot)) > r.cfg.MaxSnapshotBytes {
			r.log.Warn("local document exceeds snapshot cap, flush skipped",
				"size", len(snapshot),
				"cap", r.cfg.MaxSnapshotBytes,
			)
			r.completeFlush(false)
			return ErrSnapshotTooLarge
		}

		version, err := r.send(ctx, snapshot)
		if err != nil {
			if errors.Is(err, ErrPermissionDenied) {
				r.completeFlush(false)
				return err
			}
			// Transient failure: keep the document dirty and let the
			// next boundary or resync tick retry.
			r.completeFlush(true)
			r.log.Warn("flush failed, will retry", "error", err)
			return nil
		}

		r.mu.Lock()
		if version > r.lastVersion {
			r.lastVersion = version
		}
		r.fingerprint = token.HashBytes(snapshot)
		rerun := r.flushQueued
		r.flushQueued = false
		if rerun {
			r.state = stateFlushing
		} else {
			r.state = stateIdle
		}
		r.mu.Unlock()

		if !rerun {
			return nil
		}
	}
}

// completeFlush returns the state machine to Dirty after a failed or
// skipped flush. retryable controls whether the resync tick may retry.
func (r *Reconciler) completeFlush(retryable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = stateDirty
	r.flushQueued = false
	r.retryable = retryable
}

// applyRemote runs the staleness checks and hands the snapshot to the
// Apply callback. version < 0 means the version is unknown and the
// fingerprint decides.
func (r *Reconciler) applyRemote(snapshot []byte, version int64) {
	fp := token.HashBytes(snapshot)

	r.mu.Lock()
	if version >= 0 {
		if version <= r.lastVersion {
			r.mu.Unlock()
			return
		}
	} else if fp == r.fingerprint {
		r.mu.Unlock()
		return
	}
	r.applying = true
	r.mu.Unlock()

	if r.cfg.Apply != nil {
		r.cfg.Apply(snapshot, version)
	}

	r.mu.Lock()
	r.applying = false
	if version > r.lastVersion {
		r.lastVersion = version
	}
	r.fingerprint = fp
	r.mu.Unlock()
}

func (r *Reconciler) reportError(err error) {
	if r.cfg.OnError != nil {
		r.cfg.OnError(err)
	}
}
