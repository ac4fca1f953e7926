// Package handler provides HTTP request handlers for BoardMesh.
//
// This package implements the REST endpoints for document reads and
// the PUT fallback write path used by clients without a live
// WebSocket connection.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
)

// Publisher is the shared persist-and-broadcast write path. The sync
// server implements it; PUT writes go through the same code as
// WebSocket snapshot frames, so validation, versioning, and fan-out
// are identical on both transports.
type Publisher interface {
	Publish(ctx context.Context, documentID string, snapshot []byte, senderClientID, excludeConnID string) (int64, error)
}

// Handler routes REST requests to the document service.
type Handler struct {
	docSvc    *service.DocumentService
	publisher Publisher
	log       logger.Logger
	mux       *http.ServeMux
}

// New creates a new Handler with the given services.
func New(docSvc *service.DocumentService, publisher Publisher, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	h := &Handler{
		docSvc:    docSvc,
		publisher: publisher,
		log:       log,
		mux:       http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Health endpoints (no auth required)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	// Document endpoints
	h.mux.HandleFunc("GET /documents/{id}", h.handleGetDocument)
	h.mux.HandleFunc("GET /documents/{id}/version", h.handleGetVersion)
	h.mux.HandleFunc("PUT /documents/{id}", h.handlePutDocument)
}

// writeJSON writes a success response envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.log.Error("response encode failed", "error", err)
	}
}

// writeError maps a domain error to an HTTP status and writes the
// error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.RequestIDFromContext(r.Context())
	code := domain.GetErrorCode(err)

	// Hide wrapped causes (storage internals) from clients.
	message := err.Error()
	var derr *domain.DomainError
	if errors.As(err, &derr) {
		message = derr.Message
		if derr.Details != "" {
			message += ": " + derr.Details
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(statusForCode(code))
	if encodeErr := json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, nil)); encodeErr != nil {
		h.log.Error("response encode failed", "error", encodeErr)
	}
}

// statusForCode maps BoardMesh error codes to HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case "BM-AUTH-4010", "BM-AUTH-4011":
		return http.StatusUnauthorized
	case "BM-AUTH-4030":
		return http.StatusForbidden
	case "BM-DOC-4040":
		return http.StatusNotFound
	case "BM-DOC-4130":
		return http.StatusRequestEntityTooLarge
	case "BM-DOC-4001", "BM-SYNC-4000", "BM-SYNC-4001", "BM-ARG-1001", "BM-ARG-1002", "BM-SYS-4000":
		return http.StatusBadRequest
	case "BM-SYS-4290":
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
