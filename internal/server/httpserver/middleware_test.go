// Package httpserver provides the HTTP server for BoardMesh.
package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
	"github.com/yndnr/boardmesh-go/internal/telemetry/metric"
	"github.com/yndnr/boardmesh-go/pkg/token"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID_Generated(t *testing.T) {
	h := Chain(okHandler(), RequestID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	h := Chain(okHandler(), RequestID())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-given")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-given" {
		t.Errorf("X-Request-ID = %q, want req-given", got)
	}
}

func TestAuth_ValidBearer(t *testing.T) {
	auth := service.NewAuthService()
	auth.Register(token.Hash("bmtk_mwtest"), "mw-user", nil)

	var gotUser string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := service.PrincipalFromContext(r.Context()); p != nil {
			gotUser = p.UserID
		}
		w.WriteHeader(http.StatusOK)
	})
	h := Chain(inner, Auth(auth))

	req := httptest.NewRequest("GET", "/documents/bmdc-a", nil)
	req.Header.Set("Authorization", "Bearer bmtk_mwtest")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser != "mw-user" {
		t.Errorf("principal user = %q, want mw-user", gotUser)
	}
}

func TestAuth_Rejections(t *testing.T) {
	auth := service.NewAuthService()
	auth.Register(token.Hash("bmtk_mwtest"), "mw-user", nil)
	h := Chain(okHandler(), Auth(auth))

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong token", "Bearer bmtk_nope"},
		{"missing bearer prefix", "bmtk_mwtest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/documents/bmdc-a", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestRateLimit_Enforced(t *testing.T) {
	h := Chain(okHandler(), RateLimit(1))

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", last)
	}
}

func TestRateLimit_PerIP(t *testing.T) {
	h := Chain(okHandler(), RateLimit(1))

	// Exhaust one IP's budget.
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1"
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	// A different IP is unaffected.
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:1"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status for fresh IP = %d, want 200", rec.Code)
	}
}

func TestRecover_PanicBecomes500(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Recover(nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("X-Error-Code"); got != "BM-SYS-5000" {
		t.Errorf("X-Error-Code = %q, want BM-SYS-5000", got)
	}
}

func TestCORS_PreflightAndHeaders(t *testing.T) {
	h := Chain(okHandler(), CORS(nil))

	req := httptest.NewRequest(http.MethodOptions, "/documents/bmdc-a", nil)
	req.Header.Set("Origin", "https://board.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://board.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h := Chain(okHandler(), CORS([]string{"https://trusted.example"}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

func TestAudit_NamesAuthenticatedUser(t *testing.T) {
	auth := service.NewAuthService()
	auth.Register(token.Hash("bmtk_audit"), "audit-user", nil)

	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}

	// Audit wraps Auth, as the router chains them; the audit line must
	// still carry the principal Auth resolved.
	h := Chain(okHandler(), Audit(log), Auth(auth))

	req := httptest.NewRequest("GET", "/documents/bmdc-a", nil)
	req.Header.Set("Authorization", "Bearer bmtk_audit")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal audit line: %v", err)
	}
	if got := line["user_id"]; got != "audit-user" {
		t.Errorf("user_id = %v, want audit-user", got)
	}
}

func TestAudit_NoUserOnRejectedRequest(t *testing.T) {
	auth := service.NewAuthService()

	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}
	h := Chain(okHandler(), Audit(log), Auth(auth))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/bmdc-a", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal audit line: %v", err)
	}
	if _, ok := line["user_id"]; ok {
		t.Errorf("user_id present on rejected request: %v", line["user_id"])
	}
	if got := line["status"]; got != float64(401) {
		t.Errorf("status = %v, want 401", got)
	}
}

func TestMeasure_CountsRequests(t *testing.T) {
	metrics := metric.New()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), Measure(metrics))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/bmdc-x", nil))

	families, err := metrics.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "boardmesh_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["method"] == "GET" && labels["status"] == "404" && m.GetCounter().GetValue() == 1 {
				return
			}
		}
		t.Fatalf("no GET/404 sample in %v", mf)
	}
	t.Fatal("boardmesh_http_requests_total not gathered")
}
