// Package handler provides HTTP request handlers for BoardMesh.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/storage"
)

// servicePublisher persists through the document service without a
// fan-out, standing in for the sync server in handler tests.
type servicePublisher struct {
	docSvc *service.DocumentService
}

func (p *servicePublisher) Publish(ctx context.Context, documentID string, snapshot []byte, senderClientID, excludeConnID string) (int64, error) {
	resp, err := p.docSvc.Save(ctx, &service.SaveSnapshotRequest{
		DocumentID: documentID,
		Snapshot:   snapshot,
	})
	if err != nil {
		return 0, err
	}
	return resp.Version, nil
}

func newTestHandler(maxBytes int64) *Handler {
	docSvc := service.NewDocumentService(storage.NewMemoryStore(), maxBytes)
	return New(docSvc, &servicePublisher{docSvc: docSvc}, nil)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) *Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not an envelope: %v (%s)", err, rec.Body.String())
	}
	return &resp
}

func dataField(t *testing.T, resp *Response, key string) any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data is %T, want object", resp.Data)
	}
	return data[key]
}

func TestHandler_Health(t *testing.T) {
	h := newTestHandler(0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Code != "OK" {
		t.Errorf("Code = %q, want OK", resp.Code)
	}
}

func TestHandler_GetDocument_Fresh(t *testing.T) {
	h := newTestHandler(0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/bmdc-new", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if got := dataField(t, resp, "version"); got != float64(0) {
		t.Errorf("version = %v, want 0", got)
	}
}

func TestHandler_PutThenGet(t *testing.T) {
	h := newTestHandler(0)

	body := bytes.NewBufferString(`{"shapes":[{"id":"r1"}]}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("PUT", "/documents/bmdc-put", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if got := dataField(t, resp, "version"); got != float64(1) {
		t.Errorf("version = %v, want 1", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/bmdc-put", nil))
	resp = decodeEnvelope(t, rec)
	if got := dataField(t, resp, "version"); got != float64(1) {
		t.Errorf("GET version = %v, want 1", got)
	}
	snap, _ := json.Marshal(dataField(t, resp, "snapshot"))
	if !bytes.Contains(snap, []byte(`"r1"`)) {
		t.Errorf("snapshot = %s, missing written shape", snap)
	}
}

func TestHandler_GetVersion(t *testing.T) {
	h := newTestHandler(0)

	h.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest("PUT", "/documents/bmdc-v", bytes.NewBufferString(`{"a":1}`)))
	h.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest("PUT", "/documents/bmdc-v", bytes.NewBufferString(`{"a":2}`)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/bmdc-v/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if got := dataField(t, resp, "version"); got != float64(2) {
		t.Errorf("version = %v, want 2", got)
	}
}

func TestHandler_PutOversized(t *testing.T) {
	h := newTestHandler(128)

	body := bytes.NewBufferString(`{"pad":"` + strings.Repeat("x", 200) + `"}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("PUT", "/documents/bmdc-big", body))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if got := rec.Header().Get("X-Error-Code"); got != "BM-DOC-4130" {
		t.Errorf("X-Error-Code = %q, want BM-DOC-4130", got)
	}

	// The rejected write must not have bumped the version.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/bmdc-big/version", nil))
	resp := decodeEnvelope(t, rec)
	if got := dataField(t, resp, "version"); got != float64(0) {
		t.Errorf("version = %v, want 0", got)
	}
}

func TestHandler_PutUnparsableJSON(t *testing.T) {
	h := newTestHandler(0)

	body := bytes.NewBufferString(`{"unterminated`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("PUT", "/documents/bmdc-bad", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_PutEmptyBody(t *testing.T) {
	h := newTestHandler(0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("PUT", "/documents/bmdc-empty", bytes.NewBuffer(nil)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_PutScopedPrincipalDenied(t *testing.T) {
	h := newTestHandler(0)

	req := httptest.NewRequest("PUT", "/documents/bmdc-other", bytes.NewBufferString(`{"a":1}`))
	req = req.WithContext(service.WithPrincipal(req.Context(), &service.Principal{
		UserID:    "scoped",
		Documents: []string{"bmdc-mine"},
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
