package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeSyncServer speaks just enough of the server protocol to exercise
// the reconciler: the WebSocket endpoint plus the three REST routes.
type fakeSyncServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	version  int64
	snapshot []byte

	conns chan *websocket.Conn
}

func newFakeSyncServer(t *testing.T) *fakeSyncServer {
	t.Helper()
	f := &fakeSyncServer{
		t:        t,
		snapshot: []byte(`{}`),
		conns:    make(chan *websocket.Conn, 4),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/documents/{id}", f.handleSync)
	mux.HandleFunc("GET /documents/{id}/version", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		v := f.version
		f.mu.Unlock()
		writeEnvelope(w, map[string]any{"version": v})
	})
	mux.HandleFunc("GET /documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		v, snap := f.version, f.snapshot
		f.mu.Unlock()
		writeEnvelope(w, map[string]any{
			"id":       r.PathValue("id"),
			"version":  v,
			"snapshot": json.RawMessage(snap),
		})
	})
	mux.HandleFunc("PUT /documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.version++
		v := f.version
		f.mu.Unlock()
		writeEnvelope(w, map[string]any{"id": r.PathValue("id"), "version": v})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSyncServer) handleSync(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade failed: %v", err)
		return
	}
	f.conns <- conn
}

func (f *fakeSyncServer) set(version int64, snapshot []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version = version
	f.snapshot = snapshot
}

// awaitConn waits for the reconciler to connect.
func (f *fakeSyncServer) awaitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-f.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reconciler connection")
		return nil
	}
}

func sendServerFrame(t *testing.T, conn *websocket.Conn, f frame) {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func i64(v int64) *int64 { return &v }

// waitConnected blocks until the reconciler has installed its
// connection. The server-side upgrade completes before the client's
// dial returns, so awaitConn alone does not mean the reconciler is
// ready to flush over WebSocket yet.
func waitConnected(t *testing.T, r *Reconciler) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.currentConn() != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for reconciler to finish connecting")
}

func runReconciler(t *testing.T, r *Reconciler) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Run did not stop after cancel")
		}
	})
	return cancel
}

func TestReconciler_Run_ResyncsOnConnect(t *testing.T) {
	f := newFakeSyncServer(t)
	f.set(3, []byte(`{"shapes":["a"]}`))

	applied := make(chan int64, 4)
	r := newTestReconciler(t, Config{
		ServerURL: f.srv.URL,
		Apply: func(snapshot []byte, version int64) {
			applied <- version
		},
	})
	runReconciler(t, r)
	f.awaitConn(t)

	select {
	case v := <-applied:
		if v != 3 {
			t.Errorf("applied version = %d, want 3", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resync apply")
	}
}

func TestReconciler_Run_StaleReconnectCatchesUp(t *testing.T) {
	f := newFakeSyncServer(t)
	f.set(7, []byte(`{"shapes":["g"]}`))

	applied := make(chan int64, 4)
	r := newTestReconciler(t, Config{
		ServerURL: f.srv.URL,
		Apply: func(snapshot []byte, version int64) {
			applied <- version
		},
	})
	// Client last saw version 5; the server moved on to 7 while it was
	// offline.
	r.mu.Lock()
	r.lastVersion = 5
	r.mu.Unlock()

	runReconciler(t, r)
	f.awaitConn(t)

	select {
	case v := <-applied:
		if v != 7 {
			t.Errorf("applied version = %d, want 7", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for catch-up apply")
	}
	if got := r.Version(); got != 7 {
		t.Errorf("Version = %d, want 7", got)
	}
}

func TestReconciler_Run_SuppressesOwnEcho(t *testing.T) {
	f := newFakeSyncServer(t)

	applied := make(chan int64, 4)
	r := newTestReconciler(t, Config{
		ServerURL: f.srv.URL,
		ClientID:  "client-self",
		Apply: func(snapshot []byte, version int64) {
			applied <- version
		},
	})
	runReconciler(t, r)
	conn := f.awaitConn(t)

	sendServerFrame(t, conn, frame{
		Type: "snapshot", DocumentID: "bmdc-test",
		Snapshot: []byte(`{"mine":true}`), Version: i64(5), ClientID: "client-self",
	})
	sendServerFrame(t, conn, frame{
		Type: "snapshot", DocumentID: "bmdc-test",
		Snapshot: []byte(`{"theirs":true}`), Version: i64(6), ClientID: "client-other",
	})

	select {
	case v := <-applied:
		if v != 6 {
			t.Errorf("applied version = %d, want 6 (own echo must be skipped)", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for peer snapshot")
	}
}

func TestReconciler_Run_AnswersPing(t *testing.T) {
	f := newFakeSyncServer(t)

	r := newTestReconciler(t, Config{ServerURL: f.srv.URL})
	runReconciler(t, r)
	conn := f.awaitConn(t)

	sendServerFrame(t, conn, frame{Type: "ping", TS: time.Now().UnixMilli()})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	var got frame
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal pong: %v", err)
	}
	if got.Type != "pong" {
		t.Errorf("reply type = %q, want pong", got.Type)
	}
}

func TestReconciler_FlushOverWebSocket(t *testing.T) {
	f := newFakeSyncServer(t)

	r := newTestReconciler(t, Config{
		ServerURL: f.srv.URL,
		ClientID:  "client-self",
		Capture:   func() ([]byte, error) { return []byte(`{"shapes":["x"]}`), nil },
	})
	runReconciler(t, r)
	conn := f.awaitConn(t)
	waitConnected(t, r)

	// Server side: acknowledge the next snapshot frame with version 7.
	go func() {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var got frame
		if json.Unmarshal(data, &got) != nil || got.Type != "snapshot" {
			return
		}
		sendServerFrame(t, conn, frame{Type: "ack", Version: i64(7)})
	}()

	r.Mutated()
	if err := r.InteractionEnded(context.Background()); err != nil {
		t.Fatalf("InteractionEnded failed: %v", err)
	}
	if got := r.Version(); got != 7 {
		t.Errorf("Version = %d, want 7 (from ack)", got)
	}
}

func TestReconciler_SyncURL(t *testing.T) {
	r := newTestReconciler(t, Config{
		ServerURL:  "http://example.com:5480",
		DocumentID: "bmdc-board",
		Token:      "bmtk_secret",
		ClientID:   "client-1",
	})

	u, err := r.syncURL()
	if err != nil {
		t.Fatalf("syncURL failed: %v", err)
	}
	want := "ws://example.com:5480/ws/documents/bmdc-board?clientId=client-1&token=bmtk_secret"
	if u != want {
		t.Errorf("syncURL = %q, want %q", u, want)
	}
}
