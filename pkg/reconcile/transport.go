package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// frame mirrors the server's JSON wire schema.
type frame struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
	Version    *int64          `json:"version,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	TS         int64           `json:"ts,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// envelope is the server's REST response wrapper.
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

const (
	maxReconnectBackoff = 30 * time.Second
	wsWriteWait         = 10 * time.Second
)

// Run connects to the server and blocks, applying remote snapshots and
// resyncing until ctx is canceled. It reconnects with exponential
// backoff when the connection drops; a resync runs on every (re)connect
// and then every ResyncInterval.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.ResyncInterval)
	defer ticker.Stop()

	backoff := time.Second
	for {
		if err := r.connect(ctx); err != nil {
			r.log.Warn("connect failed, retrying",
				"error", err,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxReconnectBackoff)
			continue
		}
		backoff = time.Second

		r.resync(ctx)

		readDone := make(chan error, 1)
		go func() {
			readDone <- r.readLoop()
		}()

	connected:
		for {
			select {
			case <-ctx.Done():
				r.closeConn()
				<-readDone
				return ctx.Err()
			case <-ticker.C:
				r.resync(ctx)
				r.retryPending(ctx)
			case err := <-readDone:
				r.closeConn()
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.log.Warn("connection lost, reconnecting", "error", err)
				break connected
			}
		}
	}
}

// connect dials the sync endpoint and installs the connection.
func (r *Reconciler) connect(ctx context.Context) error {
	u, err := r.syncURL()
	if err != nil {
		return err
	}

	conn, resp, err := r.dial.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("reconcile: dial %s: %w (status %d)", u, err, resp.StatusCode)
		}
		return fmt.Errorf("reconcile: dial %s: %w", u, err)
	}

	r.connMu.Lock()
	r.conn = conn
	r.connMu.Unlock()

	// Drop acks left over from a previous connection.
	for {
		select {
		case <-r.ackCh:
		default:
			return nil
		}
	}
}

// syncURL builds ws(s)://host/ws/documents/{id}?token=...&clientId=...
func (r *Reconciler) syncURL() (string, error) {
	u, err := url.Parse(r.cfg.ServerURL)
	if err != nil {
		return "", fmt.Errorf("reconcile: parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("reconcile: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/documents/" + r.cfg.DocumentID
	q := u.Query()
	if r.cfg.Token != "" {
		q.Set("token", r.cfg.Token)
	}
	q.Set("clientId", r.cfg.ClientID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (r *Reconciler) currentConn() *websocket.Conn {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	return r.conn
}

func (r *Reconciler) closeConn() {
	r.connMu.Lock()
	conn := r.conn
	r.conn = nil
	r.connMu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// readLoop consumes frames until the connection fails.
func (r *Reconciler) readLoop() error {
	conn := r.currentConn()
	if conn == nil {
		return errors.New("reconcile: not connected")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			r.log.Warn("dropping malformed frame", "error", err)
			continue
		}

		switch f.Type {
		case "ping":
			r.writeFrame(conn, frame{Type: "pong", TS: time.Now().UnixMilli()})
		case "pong":
			// liveness only
		case "ack":
			if f.Version != nil {
				select {
				case r.ackCh <- *f.Version:
				default:
				}
			}
		case "snapshot":
			if f.ClientID == r.cfg.ClientID {
				continue // own write echoed back, nothing to apply
			}
			version := int64(-1)
			if f.Version != nil {
				version = *f.Version
			}
			r.applyRemote(f.Snapshot, version)
		case "error":
			r.reportError(fmt.Errorf("reconcile: server: %s", f.Error))
		default:
			r.log.Debug("ignoring unknown frame type", "type", f.Type)
		}
	}
}

func (r *Reconciler) writeFrame(conn *websocket.Conn, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// send pushes one snapshot: over the live WebSocket when connected
// (confirmed by the server's ack), otherwise via REST PUT. Returns the
// newly assigned version.
func (r *Reconciler) send(ctx context.Context, snapshot []byte) (int64, error) {
	if conn := r.currentConn(); conn != nil {
		version, err := r.sendWS(ctx, conn, snapshot)
		if err == nil {
			return version, nil
		}
		// A write failure means the socket is down; fall back to REST.
		// An ack timeout means the frame may have been applied, so do
		// not double-send.
		var wErr *wsWriteError
		if !errors.As(err, &wErr) {
			return 0, err
		}
		r.log.Debug("websocket write failed, falling back to REST", "error", err)
	}
	return r.putSnapshot(ctx, snapshot)
}

type wsWriteError struct{ err error }

func (e *wsWriteError) Error() string { return e.err.Error() }
func (e *wsWriteError) Unwrap() error { return e.err }

func (r *Reconciler) sendWS(ctx context.Context, conn *websocket.Conn, snapshot []byte) (int64, error) {
	// Drain stale acks so the one we wait for belongs to this write.
	for {
		select {
		case <-r.ackCh:
			continue
		default:
		}
		break
	}

	f := frame{
		Type:       "snapshot",
		DocumentID: r.cfg.DocumentID,
		Snapshot:   snapshot,
		ClientID:   r.cfg.ClientID,
	}
	if err := r.writeFrame(conn, f); err != nil {
		return 0, &wsWriteError{err: err}
	}

	select {
	case version := <-r.ackCh:
		return version, nil
	case <-time.After(r.cfg.FlushTimeout):
		return 0, errors.New("reconcile: timed out waiting for ack")
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// putSnapshot is the REST fallback: PUT /documents/{id}.
func (r *Reconciler) putSnapshot(ctx context.Context, snapshot []byte) (int64, error) {
	u := r.restURL("/documents/"+r.cfg.DocumentID, url.Values{"clientId": {r.cfg.ClientID}})
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(snapshot))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	r.setAuth(req)

	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("reconcile: put snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return 0, fmt.Errorf("%w (status %d)", ErrPermissionDenied, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return 0, ErrSnapshotTooLarge
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("reconcile: put snapshot: unexpected status %d", resp.StatusCode)
	}

	var data struct {
		Version int64 `json:"version"`
	}
	if err := decodeEnvelope(resp.Body, &data); err != nil {
		return 0, fmt.Errorf("reconcile: put snapshot: %w", err)
	}
	return data.Version, nil
}

// resync fetches the authoritative version and, when the server is
// ahead, fetches and applies the full snapshot.
func (r *Reconciler) resync(ctx context.Context) {
	version, err := r.fetchVersion(ctx)
	if err != nil {
		r.log.Debug("version poll failed", "error", err)
		return
	}

	r.mu.Lock()
	behind := version > r.lastVersion
	r.mu.Unlock()
	if !behind {
		return
	}

	snapshot, docVersion, err := r.fetchDocument(ctx)
	if err != nil {
		r.log.Warn("resync fetch failed", "error", err)
		return
	}
	r.applyRemote(snapshot, docVersion)
}

// retryPending reruns a flush that failed transiently while the
// document is still dirty.
func (r *Reconciler) retryPending(ctx context.Context) {
	r.mu.Lock()
	if r.state != stateDirty || !r.retryable {
		r.mu.Unlock()
		return
	}
	r.state = stateFlushing
	r.mu.Unlock()

	if err := r.flush(ctx); err != nil {
		r.reportError(err)
	}
}

// fetchVersion polls GET /documents/{id}/version.
func (r *Reconciler) fetchVersion(ctx context.Context) (int64, error) {
	u := r.restURL("/documents/"+r.cfg.DocumentID+"/version", nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	r.setAuth(req)

	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("version poll: unexpected status %d", resp.StatusCode)
	}

	var data struct {
		Version int64 `json:"version"`
	}
	if err := decodeEnvelope(resp.Body, &data); err != nil {
		return 0, err
	}
	return data.Version, nil
}

// fetchDocument fetches GET /documents/{id}.
func (r *Reconciler) fetchDocument(ctx context.Context) ([]byte, int64, error) {
	u := r.restURL("/documents/"+r.cfg.DocumentID, nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	r.setAuth(req)

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch document: unexpected status %d", resp.StatusCode)
	}

	var data struct {
		Version  int64           `json:"version"`
		Snapshot json.RawMessage `json:"snapshot"`
	}
	if err := decodeEnvelope(resp.Body, &data); err != nil {
		return nil, 0, err
	}
	return data.Snapshot, data.Version, nil
}

func (r *Reconciler) restURL(path string, query url.Values) string {
	base := strings.TrimRight(r.cfg.ServerURL, "/")
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (r *Reconciler) setAuth(req *http.Request) {
	if r.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	}
}

func decodeEnvelope(body io.Reader, target any) error {
	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return errors.New("response has no data")
	}
	return json.Unmarshal(env.Data, target)
}
