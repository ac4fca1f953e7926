// Package httpserver provides the HTTP server for BoardMesh.
package httpserver

import (
	"net/http"

	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
	"github.com/yndnr/boardmesh-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// DocumentService handles document reads.
	DocumentService *service.DocumentService

	// AuthService authenticates REST requests.
	AuthService *service.AuthService

	// Publisher is the shared persist-and-broadcast write path
	// (implemented by the sync server).
	Publisher handler.Publisher

	// SyncHandler serves GET /ws/documents/{id}. It authenticates
	// inside the WebSocket session, so the Auth middleware is not
	// applied to it.
	SyncHandler http.HandlerFunc

	// Metrics serves GET /metrics when set.
	Metrics *metric.Registry

	// Logger for request logging.
	Logger logger.Logger

	// CORSAllowedOrigins is the allowed CORS origin list (empty = allow all).
	CORSAllowedOrigins []string

	// GlobalRateLimit is the per-IP rate limit (requests/second, 0 = off).
	GlobalRateLimit int

	// EnableAudit enables per-request audit logging.
	EnableAudit bool
}

// NewRouter creates and configures the HTTP router with all routes
// and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	h := handler.New(cfg.DocumentService, cfg.Publisher, log)

	// Probe endpoints skip auth and rate limiting so orchestrators
	// are never locked out.
	probeHandler := Chain(h, RequestID(), Recover(log))

	// Business endpoints: full chain.
	businessMiddlewares := []Middleware{
		RequestID(),
		Recover(log),
		CORS(cfg.CORSAllowedOrigins),
	}
	if cfg.Metrics != nil {
		businessMiddlewares = append(businessMiddlewares, Measure(cfg.Metrics))
	}
	if cfg.GlobalRateLimit > 0 {
		businessMiddlewares = append(businessMiddlewares, RateLimit(cfg.GlobalRateLimit))
	}
	if cfg.EnableAudit {
		businessMiddlewares = append(businessMiddlewares, Audit(log))
	}
	businessMiddlewares = append(businessMiddlewares, Auth(cfg.AuthService))
	businessHandler := Chain(h, businessMiddlewares...)

	mux := http.NewServeMux()

	mux.Handle("GET /health", probeHandler)
	mux.Handle("GET /ready", probeHandler)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), RequestID(), Recover(log)))
	}

	mux.Handle("GET /documents/{id}", businessHandler)
	mux.Handle("GET /documents/{id}/version", businessHandler)
	mux.Handle("PUT /documents/{id}", businessHandler)

	if cfg.SyncHandler != nil {
		mux.Handle("GET /ws/documents/{id}", Chain(cfg.SyncHandler, Recover(log)))
	}

	return mux
}
