package handlers

import (
	"net/http"

	"hearth/internal/service"
)

// ProfileHandler exposes user profile operations over JSON.
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

type createProfileRequest struct {
	DisplayName  string `json:"displayName"`
	IdentityHash string `json:"identityHash"`
}

// CreateProfile creates a user profile for a platform identity.
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.profileService.CreateProfile(req.DisplayName, req.IdentityHash)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, profile)
}

// GetProfile returns a profile by id.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetProfile(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

type updateAvatarRequest struct {
	AvatarURL string `json:"avatarUrl"`
}

// UpdateAvatar replaces the profile's avatar reference.
func (h *ProfileHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	var req updateAvatarRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.profileService.UpdateAvatar(r.PathValue("id"), req.AvatarURL); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteProfile deletes a profile and all of its memberships.
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.profileService.DeleteProfile(r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
