package handlers

import (
	"net/http"

	"hearth/internal/models"
	"hearth/internal/service"
)

// InvitationHandler exposes invitation operations over JSON.
type InvitationHandler struct {
	invitationService *service.InvitationService
}

// NewInvitationHandler creates a new invitation handler.
func NewInvitationHandler(invitationService *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

type createInvitationRequest struct {
	FamilyID  string `json:"familyId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	InvitedBy string `json:"invitedBy"`
}

// CreateInvitation issues an invitation and emails its code.
func (h *InvitationHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req createInvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	inv, err := h.invitationService.CreateInvitation(r.Context(), req.FamilyID, req.Email, req.InvitedBy, models.Role(req.Role))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

type redeemInvitationRequest struct {
	Code      string `json:"code"`
	ProfileID string `json:"profileId"`
}

// RedeemInvitation consumes an invitation code and joins the profile
// to the inviting family.
func (h *InvitationHandler) RedeemInvitation(w http.ResponseWriter, r *http.Request) {
	var req redeemInvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.invitationService.RedeemInvitation(req.Code, req.ProfileID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

// ListForFamily returns the invitations issued by a family.
func (h *InvitationHandler) ListForFamily(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.invitationService.ListInvitations(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, invitations)
}
