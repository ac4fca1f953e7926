package wsserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
)

// readLimitSlack is headroom above the hard read bound for JSON
// framing (type tag, ids, version).
const readLimitSlack = 64 << 10

// readLimitFactor sets the hard socket read bound as a multiple of the
// snapshot cap. A snapshot over the cap but under the bound is read in
// full and answered with an error frame by the persist path; only
// frames past the bound kill the connection at the socket level.
const readLimitFactor = 2

// session drives one sync connection from upgrade to teardown.
//
// Lifecycle: authenticate, register, send initial state, then loop on
// inbound frames until the peer disconnects, misbehaves, or times out.
type session struct {
	server     *Server
	sock       *websocket.Conn
	documentID string
	bearer     string
	clientID   string

	conn    *Conn
	limiter *rate.Limiter
	log     logger.Logger
}

func (s *session) run(ctx context.Context) {
	srv := s.server

	// 1. Authenticate; the socket is already upgraded so rejections
	//    are delivered as close frames.
	principal, err := srv.auth.Verify(s.bearer)
	if err != nil {
		s.reject("unauthorized")
		return
	}
	if err := srv.auth.Authorize(principal, s.documentID); err != nil {
		s.reject("forbidden")
		return
	}
	if err := domain.ValidateDocumentID(s.documentID); err != nil {
		s.reject("invalid document id")
		return
	}

	// 2. Register the connection
	connID, err := domain.GenerateConnectionID()
	if err != nil {
		s.fail("id generation failed")
		return
	}
	s.conn = newConn(s.sock, connID, s.documentID, principal.UserID, s.clientID, srv.cfg.SendBuffer)
	s.limiter = rate.NewLimiter(rate.Limit(srv.cfg.InboundRate), srv.cfg.InboundBurst)
	s.log = srv.log.With(
		"conn_id", connID,
		"document_id", s.documentID,
		"user_id", principal.UserID)

	srv.registry.Add(s.conn)
	if srv.metrics != nil {
		srv.metrics.ConnectionsActive.Inc()
		srv.metrics.ConnectionsTotal.Inc()
	}
	defer s.teardown()

	go s.conn.writeLoop()
	s.log.Info("session started")

	// 3. Send the current document state so the client converges
	//    immediately. Never-written documents send nothing; the
	//    client's local state is already the latest.
	doc, err := srv.docs.Get(ctx, s.documentID)
	if err != nil {
		s.log.Error("initial state load failed", "error", err)
		s.conn.CloseWithCode(websocket.CloseInternalServerErr, "storage unavailable")
		return
	}
	if !doc.Document.Empty() {
		msg := domain.NewSnapshot(s.documentID, json.RawMessage(doc.Document.Snapshot), doc.Document.Version, "")
		if err := s.conn.SendMessage(msg); err != nil {
			s.log.Warn("initial snapshot send failed", "error", err)
			return
		}
	}

	// 4. Read loop
	s.sock.SetReadLimit(readLimitFactor*srv.docs.MaxSnapshotBytes() + readLimitSlack)
	for {
		_, frame, err := s.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info("session ended", "error", err)
			} else {
				s.log.Info("session ended")
			}
			return
		}
		s.conn.touch()

		if !s.limiter.Allow() {
			s.log.Warn("inbound rate exceeded, dropping frame")
			continue
		}

		msg, err := domain.DecodeMessage(frame)
		if err != nil {
			// Malformed frames are dropped without a reply; answering
			// would let a buggy client drive an error loop.
			s.log.Debug("dropping undecodable frame", "error", err)
			continue
		}
		s.handle(ctx, msg)
	}
}

// handle dispatches one decoded inbound message.
func (s *session) handle(ctx context.Context, msg *domain.Message) {
	switch msg.Type {
	case domain.MessageTypePing:
		if err := s.conn.SendMessage(domain.NewPong()); err != nil {
			s.log.Warn("pong send failed", "error", err)
		}

	case domain.MessageTypePong:
		// touch already ran; nothing else to do

	case domain.MessageTypeSnapshot:
		s.handleSnapshot(ctx, msg)

	default:
		// ack and error frames are server-to-client only; drop them
		// silently like any other unexpected frame.
		s.log.Debug("dropping unexpected frame", "type", msg.Type)
	}
}

// handleSnapshot persists an inbound snapshot and fans it out.
func (s *session) handleSnapshot(ctx context.Context, msg *domain.Message) {
	// Clients flushing an empty board still send "{}"; a frame with
	// no payload at all carries no state and is ignored.
	if !msg.HasSnapshot() {
		return
	}

	clientID := msg.ClientID
	if clientID == "" {
		clientID = s.conn.ClientID()
	}

	version, err := s.server.Publish(ctx, s.documentID, msg.Snapshot, clientID, s.conn.ID())
	if err != nil {
		// Rejections (size cap, malformed payload) answer the writer
		// and leave the session open; only storage faults end it.
		if domain.GetErrorCode(err) == "BM-SYS-5001" {
			s.log.Error("snapshot persist failed", "error", err)
			s.conn.CloseWithCode(websocket.CloseInternalServerErr, "storage unavailable")
			return
		}
		s.sendError(err)
		return
	}

	if err := s.conn.SendMessage(domain.NewAck(version)); err != nil {
		s.log.Warn("ack send failed", "error", err)
	}
}

// sendError answers the peer with an error frame.
func (s *session) sendError(cause error) {
	reason := cause.Error()
	var derr *domain.DomainError
	if errors.As(cause, &derr) {
		reason = derr.Code + ": " + derr.Message
	}
	if err := s.conn.SendMessage(domain.NewError(reason)); err != nil {
		s.log.Warn("error frame send failed", "error", err)
	}
}

// reject closes an unauthenticated socket with a policy violation
// close frame. The connection was never registered.
func (s *session) reject(reason string) {
	s.server.log.Info("session rejected",
		"document_id", s.documentID,
		"reason", reason)
	tmp := &Conn{sock: s.sock, done: make(chan struct{})}
	tmp.CloseWithCode(websocket.ClosePolicyViolation, reason)
}

// fail closes a socket that broke before registration.
func (s *session) fail(reason string) {
	tmp := &Conn{sock: s.sock, done: make(chan struct{})}
	tmp.CloseWithCode(websocket.CloseInternalServerErr, reason)
}

// teardown unregisters and closes the connection. Idempotent with
// hub- and heartbeat-initiated removal.
func (s *session) teardown() {
	s.server.registry.Remove(s.documentID, s.conn.ID())
	s.conn.Close()
	if s.server.metrics != nil {
		s.server.metrics.ConnectionsActive.Dec()
	}
	s.log.Info("session closed")
}
