package handler

import (
	"io"
	"net/http"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/core/service"
)

// bodySlack is headroom above the snapshot cap so an over-cap body is
// read fully and answered with 413 instead of an aborted connection.
const bodySlack = 64 << 10

// handleGetDocument serves GET /documents/{id}.
// Never-written documents return an empty document at version 0.
func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	resp, err := h.docSvc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	doc := resp.Document
	h.writeJSON(w, r, http.StatusOK, &DocumentResponse{
		ID:        doc.ID,
		Version:   doc.Version,
		UpdatedAt: doc.UpdatedAt,
		Snapshot:  doc.Snapshot,
	})
}

// handleGetVersion serves GET /documents/{id}/version.
// A cheap poll target for clients deciding whether to resync.
func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	version, err := h.docSvc.Version(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, &VersionResponse{ID: id, Version: version})
}

// handlePutDocument serves PUT /documents/{id}, the write fallback
// for clients without a live WebSocket connection. The body is the
// raw snapshot JSON. Connected peers receive the update exactly as if
// it had arrived over WebSocket.
func (h *Handler) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if p := service.PrincipalFromContext(r.Context()); p != nil && !p.AllowsDocument(id) {
		h.writeError(w, r, domain.ErrAccessDenied)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.docSvc.MaxSnapshotBytes()+bodySlack)
	snapshot, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, domain.ErrSnapshotTooLarge)
		return
	}

	clientID := r.URL.Query().Get("clientId")
	version, err := h.publisher.Publish(r.Context(), id, snapshot, clientID, "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, &SaveDocumentResponse{ID: id, Version: version})
}
