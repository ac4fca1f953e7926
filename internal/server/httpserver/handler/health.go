package handler

import "net/http"

// handleHealth serves GET /health: process liveness.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, &HealthResponse{Status: "ok"})
}

// handleReady serves GET /ready: storage reachability.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	// A version probe exercises the storage path without moving data.
	if _, err := h.docSvc.Version(r.Context(), "bmdc-readiness-probe"); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, &HealthResponse{Status: "ready"})
}
