package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hearth/internal/service"
	"hearth/internal/sync"
	"hearth/internal/validation"
)

type errorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondServiceError maps service layer failures onto HTTP statuses.
// Validation failures and constraint violations are client errors;
// everything unexpected is a 500 with the detail kept in the log.
func respondServiceError(w http.ResponseWriter, err error) {
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Violations: verrs.Violations})
		return
	}

	var cerr *service.ConstraintError
	if errors.As(err, &cerr) {
		respondJSON(w, http.StatusConflict, errorResponse{Error: cerr.Rule})
		return
	}

	switch {
	case errors.Is(err, service.ErrFamilyNotFound),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrMembershipNotFound),
		errors.Is(err, service.ErrInvitationNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvitationExpired):
		respondJSON(w, http.StatusGone, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvitationUsed):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, sync.ErrInvalidRecord):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
