package handlers

import (
	"net/http"

	"hearth/internal/sync"
)

// SyncHandler accepts remote change notifications and manual sync
// triggers. Notification payloads only name the changed record; the
// engine fetches the current state itself.
type SyncHandler struct {
	engine *sync.Engine
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(engine *sync.Engine) *SyncHandler {
	return &SyncHandler{engine: engine}
}

type notificationRequest struct {
	RecordType string `json:"recordType"`
	RecordName string `json:"recordName"`
}

// Notify applies a "record changed" signal from the remote store.
func (h *SyncHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RecordType == "" || req.RecordName == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "recordType and recordName are required"})
		return
	}

	if err := h.engine.HandleRemoteChange(r.Context(), req.RecordType, req.RecordName); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Run triggers a full sync pass immediately.
func (h *SyncHandler) Run(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SyncPass(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
