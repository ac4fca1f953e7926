package wsserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
	"github.com/yndnr/boardmesh-go/internal/telemetry/metric"
)

// Config tunes the sync server.
type Config struct {
	// HeartbeatInterval is how often the server pings idle peers.
	// Default: 20s
	HeartbeatInterval time.Duration

	// HeartbeatTimeout is how long a peer may stay silent before it
	// is force-closed. Default: 60s
	HeartbeatTimeout time.Duration

	// SendBuffer is the per-connection outbound frame buffer.
	// Default: 256
	SendBuffer int

	// InboundRate limits inbound messages per second per connection.
	// Default: 50
	InboundRate float64

	// InboundBurst is the rate limiter burst. Default: 100
	InboundBurst int
}

// DefaultConfig returns the default sync server configuration.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: DefaultHeartbeatInterval,
		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		SendBuffer:        256,
		InboundRate:       50,
		InboundBurst:      100,
	}
}

// Server is the WebSocket sync endpoint.
//
// It owns the connection registry, the broadcast hub, and the
// heartbeat monitor. Snapshot writes from any transport go through
// Publish, so persistence and fan-out behave identically whether a
// snapshot arrived over WebSocket or the REST fallback.
type Server struct {
	cfg      Config
	auth     *service.AuthService
	docs     *service.DocumentService
	registry *Registry
	hub      *Hub
	monitor  *Monitor
	metrics  *metric.Registry
	log      logger.Logger
	upgrader websocket.Upgrader
}

// New creates a sync server. metrics may be nil in tests.
func New(cfg Config, auth *service.AuthService, docs *service.DocumentService, metrics *metric.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.InboundRate <= 0 {
		cfg.InboundRate = 50
	}
	if cfg.InboundBurst <= 0 {
		cfg.InboundBurst = 100
	}

	registry := NewRegistry()
	return &Server{
		cfg:      cfg,
		auth:     auth,
		docs:     docs,
		registry: registry,
		hub:      NewHub(registry, metrics, log),
		monitor:  NewMonitor(registry, metrics, log, cfg.HeartbeatInterval, cfg.HeartbeatTimeout),
		metrics:  metrics,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browsers connect from arbitrary origins; tokens carry
			// the actual access control.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Registry exposes the connection registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Start launches the heartbeat monitor.
func (s *Server) Start() {
	s.monitor.Start()
}

// Shutdown stops the monitor and closes every live connection with
// a going-away close frame.
func (s *Server) Shutdown(ctx context.Context) error {
	s.monitor.Stop()

	s.registry.Each(func(conn *Conn) {
		conn.CloseWithCode(websocket.CloseGoingAway, "server shutting down")
	})
	s.log.Info("sync server shut down", "closed_connections", s.registry.Count())
	return nil
}

// HandleSync upgrades "GET /ws/documents/{id}" to a sync session.
//
// Authentication runs after the upgrade so rejected clients receive a
// proper close frame (1008) instead of an opaque handshake failure.
func (s *Server) HandleSync(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	bearer := bearerToken(r)
	clientID := r.URL.Query().Get("clientId")

	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.log.Warn("upgrade failed", "document_id", documentID, "error", err)
		return
	}

	sess := &session{
		server:     s,
		sock:       sock,
		documentID: documentID,
		bearer:     bearer,
		clientID:   clientID,
	}
	// Runs for the life of the connection; the handler goroutine is
	// already dedicated to the hijacked socket, and returning would
	// cancel the request context the session reads with.
	sess.run(r.Context())
}

// Publish persists a snapshot and fans it out to the document's
// peers. excludeConnID is skipped during fan-out (the writer is acked
// instead); it is empty for writes arriving over the REST fallback.
// Returns the newly assigned version.
func (s *Server) Publish(ctx context.Context, documentID string, snapshot []byte, senderClientID, excludeConnID string) (int64, error) {
	resp, err := s.docs.Save(ctx, &service.SaveSnapshotRequest{
		DocumentID: documentID,
		Snapshot:   snapshot,
	})
	if err != nil {
		if s.metrics != nil && domain.IsDomainError(err, "BM-DOC-4130") {
			s.metrics.SnapshotsRejected.Inc()
		}
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.SnapshotsPersisted.Inc()
		s.metrics.SnapshotBytes.Observe(float64(len(snapshot)))
	}

	msg := domain.NewSnapshot(documentID, json.RawMessage(snapshot), resp.Version, senderClientID)
	s.hub.Broadcast(documentID, msg, excludeConnID)

	return resp.Version, nil
}

// bearerToken extracts the token from the query string or the
// Authorization header. Query wins; browser WebSocket clients cannot
// set headers.
func bearerToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
