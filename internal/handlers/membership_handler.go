package handlers

import (
	"net/http"

	"hearth/internal/models"
	"hearth/internal/service"
)

// MembershipHandler exposes membership operations over JSON.
type MembershipHandler struct {
	membershipService *service.MembershipService
}

// NewMembershipHandler creates a new membership handler.
func NewMembershipHandler(membershipService *service.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

type createMembershipRequest struct {
	FamilyID string `json:"familyId"`
	UserID   string `json:"userId"`
	Role     string `json:"role"`
}

// CreateMembership joins a user to a family with an active membership.
func (h *MembershipHandler) CreateMembership(w http.ResponseWriter, r *http.Request) {
	var req createMembershipRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.membershipService.CreateMembership(req.FamilyID, req.UserID, models.Role(req.Role))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole updates a membership's role.
func (h *MembershipHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.membershipService.UpdateMembershipRole(r.PathValue("id"), models.Role(req.Role))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// RemoveMembership soft-removes a membership. The row stays behind so
// the user can rejoin later.
func (h *MembershipHandler) RemoveMembership(w http.ResponseWriter, r *http.Request) {
	if err := h.membershipService.RemoveMembership(r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ActivateMembership turns an invited or removed membership active,
// subject to the same constraints as joining.
func (h *MembershipHandler) ActivateMembership(w http.ResponseWriter, r *http.Request) {
	if err := h.membershipService.ActivateMembership(r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ListForFamily returns the active memberships of a family.
func (h *MembershipHandler) ListForFamily(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.membershipService.ActiveMembershipsForFamily(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, memberships)
}

// ListForUser returns the active memberships of a user across
// families.
func (h *MembershipHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.membershipService.ActiveMembershipsForUser(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, memberships)
}
