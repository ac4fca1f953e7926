package wsserver

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// writeWait bounds a single frame write to a peer.
const writeWait = 10 * time.Second

// Conn is one live sync connection.
//
// Outbound frames go through a buffered send channel drained by a
// single writer goroutine, so broadcasts never block on a slow peer.
// A peer whose buffer fills is disconnected rather than slowing the
// rest of the document.
type Conn struct {
	id         string
	documentID string
	userID     string
	clientID   string

	sock *websocket.Conn
	send chan []byte
	done chan struct{}

	lastSeen  atomic.Int64 // Unix milliseconds
	closed    atomic.Bool
	closeOnce sync.Once
}

func newConn(sock *websocket.Conn, id, documentID, userID, clientID string, sendBuffer int) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	c := &Conn{
		id:         id,
		documentID: documentID,
		userID:     userID,
		clientID:   clientID,
		sock:       sock,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
	c.touch()
	return c
}

// ID returns the connection id (bmcn- prefixed).
func (c *Conn) ID() string { return c.id }

// DocumentID returns the document this connection is synced to.
func (c *Conn) DocumentID() string { return c.documentID }

// UserID returns the authenticated user.
func (c *Conn) UserID() string { return c.userID }

// ClientID returns the caller-chosen client id used for echo
// suppression, empty if the client did not send one.
func (c *Conn) ClientID() string { return c.clientID }

// Send enqueues a frame without blocking.
//
// Returns domain.ErrConnectionClosed after Close, and
// domain.ErrSendBufferFull when the peer is too slow to drain its
// buffer. Callers treat either as grounds for disconnecting the peer.
func (c *Conn) Send(frame []byte) error {
	if c.closed.Load() {
		return domain.ErrConnectionClosed
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return domain.ErrConnectionClosed
	default:
		return domain.ErrSendBufferFull
	}
}

// SendMessage encodes and enqueues a protocol message.
func (c *Conn) SendMessage(msg *domain.Message) error {
	frame, err := msg.Encode()
	if err != nil {
		return err
	}
	return c.Send(frame)
}

// touch records peer activity for heartbeat liveness.
func (c *Conn) touch() {
	c.lastSeen.Store(time.Now().UnixMilli())
}

// LastSeen returns the last peer activity (Unix milliseconds).
func (c *Conn) LastSeen() int64 {
	return c.lastSeen.Load()
}

// writeLoop drains the send channel onto the socket.
// Exits on Close or on the first write error.
func (c *Conn) writeLoop() {
	for {
		select {
		case frame := <-c.send:
			if c.sock == nil {
				continue
			}
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close tears the connection down. Safe to call multiple times and
// from any goroutine.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		if c.sock != nil {
			c.sock.Close()
		}
	})
}

// CloseWithCode sends a close control frame with the given status
// code before tearing down, so well-behaved clients can distinguish
// policy rejections (1008) from server faults (1011).
func (c *Conn) CloseWithCode(code int, reason string) {
	if c.sock != nil && !c.closed.Load() {
		deadline := time.Now().Add(writeWait)
		c.sock.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), deadline)
	}
	c.Close()
}
