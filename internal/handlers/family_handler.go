package handlers

import (
	"net/http"

	"hearth/internal/service"
)

// FamilyHandler exposes family operations over JSON.
type FamilyHandler struct {
	familyService *service.FamilyService
}

// NewFamilyHandler creates a new family handler.
func NewFamilyHandler(familyService *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

type createFamilyRequest struct {
	Name      string `json:"name"`
	Code      string `json:"code"`
	CreatedBy string `json:"createdBy"`
}

// CreateFamily creates a family. When no code is supplied a unique one
// is generated.
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	code := req.Code
	if code == "" {
		generated, err := h.familyService.GenerateUniqueFamilyCode()
		if err != nil {
			respondServiceError(w, err)
			return
		}
		code = generated
	}

	family, err := h.familyService.CreateFamily(req.Name, code, req.CreatedBy)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, family)
}

// GetFamily returns a family by id.
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	family, err := h.familyService.GetFamily(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// GetFamilyByCode looks a family up by its join code. The match is
// case-sensitive.
func (h *FamilyHandler) GetFamilyByCode(w http.ResponseWriter, r *http.Request) {
	family, err := h.familyService.GetFamilyByCode(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// GetFamilyMembers returns the family together with its memberships
// and member profiles.
func (h *FamilyHandler) GetFamilyMembers(w http.ResponseWriter, r *http.Request) {
	fwm, err := h.familyService.GetFamilyWithMembers(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fwm)
}

// DeleteFamily deletes a family and all of its memberships.
func (h *FamilyHandler) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	if err := h.familyService.DeleteFamily(r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
