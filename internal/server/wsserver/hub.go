package wsserver

import (
	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
	"github.com/yndnr/boardmesh-go/internal/telemetry/metric"
)

// Hub fans accepted snapshots out to the peers of a document.
//
// Fan-out is best effort per peer: a frame is encoded once and
// enqueued on every peer's send buffer without blocking. A peer that
// cannot keep up is disconnected; the remaining peers and the
// persisted document are unaffected.
type Hub struct {
	registry *Registry
	metrics  *metric.Registry
	log      logger.Logger
}

// NewHub creates a Hub over the given registry.
func NewHub(registry *Registry, metrics *metric.Registry, log logger.Logger) *Hub {
	if log == nil {
		log = logger.Default()
	}
	return &Hub{
		registry: registry,
		metrics:  metrics,
		log:      log,
	}
}

// Broadcast delivers a message to every connection on a document
// except excludeConnID (the writer, which gets an ack instead).
// Returns the number of peers the frame was enqueued for.
func (h *Hub) Broadcast(documentID string, msg *domain.Message, excludeConnID string) int {
	conns := h.registry.List(documentID)
	if len(conns) == 0 {
		return 0
	}

	frame, err := msg.Encode()
	if err != nil {
		h.log.Error("broadcast encode failed", "document_id", documentID, "error", err)
		return 0
	}

	delivered := 0
	for _, conn := range conns {
		if conn.ID() == excludeConnID {
			continue
		}
		if err := h.Send(conn, frame); err != nil {
			continue
		}
		delivered++
	}

	if h.metrics != nil {
		h.metrics.BroadcastsTotal.Inc()
	}
	return delivered
}

// Send enqueues a frame on one connection, disconnecting the peer on
// failure. Only the failing connection is affected.
func (h *Hub) Send(conn *Conn, frame []byte) error {
	err := conn.Send(frame)
	if err == nil {
		return nil
	}

	h.log.Warn("dropping peer",
		"conn_id", conn.ID(),
		"document_id", conn.DocumentID(),
		"reason", err)
	if h.metrics != nil {
		h.metrics.BroadcastDrops.Inc()
	}

	h.registry.Remove(conn.DocumentID(), conn.ID())
	conn.Close()
	return err
}
