package wsserver

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
	"github.com/yndnr/boardmesh-go/internal/telemetry/metric"
)

// Heartbeat defaults.
const (
	DefaultHeartbeatInterval = 20 * time.Second
	DefaultHeartbeatTimeout  = 60 * time.Second
)

// Monitor pings live connections and reaps the silent ones.
//
// Liveness is tracked at the protocol level (ping/pong frames and any
// inbound message refresh lastSeen), not at the TCP level, so a
// half-open connection behind a dead NAT entry is detected within one
// timeout window.
type Monitor struct {
	registry *Registry
	metrics  *metric.Registry
	log      logger.Logger

	interval time.Duration
	timeout  time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMonitor creates a heartbeat monitor. Zero interval or timeout
// select the defaults (20s / 60s).
func NewMonitor(registry *Registry, metrics *metric.Registry, log logger.Logger, interval, timeout time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}
	if log == nil {
		log = logger.Default()
	}
	return &Monitor{
		registry: registry,
		metrics:  metrics,
		log:      log,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (m *Monitor) Start() {
	go m.loop()
}

// Stop halts the sweep loop and waits for it to exit.
func (m *Monitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *Monitor) loop() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

// sweep pings every live connection and closes those silent for
// longer than the timeout.
func (m *Monitor) sweep() {
	ping, err := domain.NewPing().Encode()
	if err != nil {
		m.log.Error("heartbeat encode failed", "error", err)
		return
	}

	cutoff := time.Now().Add(-m.timeout).UnixMilli()

	m.registry.Each(func(conn *Conn) {
		if conn.LastSeen() < cutoff {
			m.log.Info("heartbeat timeout",
				"conn_id", conn.ID(),
				"document_id", conn.DocumentID())
			if m.metrics != nil {
				m.metrics.HeartbeatTimeouts.Inc()
			}
			m.registry.Remove(conn.DocumentID(), conn.ID())
			conn.CloseWithCode(websocket.CloseGoingAway, "heartbeat timeout")
			return
		}

		// Best effort; an unresponsive peer is caught next sweep.
		conn.Send(ping)
	})
}
