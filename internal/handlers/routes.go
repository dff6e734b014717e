package handlers

import (
	"net/http"

	"hearth/internal/service"
	"hearth/internal/sync"
)

// NewRouter wires every handler onto a mux.
func NewRouter(
	familyService *service.FamilyService,
	profileService *service.ProfileService,
	membershipService *service.MembershipService,
	invitationService *service.InvitationService,
	engine *sync.Engine,
) http.Handler {
	familyHandler := NewFamilyHandler(familyService)
	profileHandler := NewProfileHandler(profileService)
	membershipHandler := NewMembershipHandler(membershipService)
	invitationHandler := NewInvitationHandler(invitationService)
	syncHandler := NewSyncHandler(engine)

	mux := http.NewServeMux()

	// Families
	mux.HandleFunc("POST /families", familyHandler.CreateFamily)
	mux.HandleFunc("GET /families/{id}", familyHandler.GetFamily)
	mux.HandleFunc("GET /families/{id}/members", familyHandler.GetFamilyMembers)
	mux.HandleFunc("DELETE /families/{id}", familyHandler.DeleteFamily)
	mux.HandleFunc("GET /families/by-code/{code}", familyHandler.GetFamilyByCode)

	// Profiles
	mux.HandleFunc("POST /profiles", profileHandler.CreateProfile)
	mux.HandleFunc("GET /profiles/{id}", profileHandler.GetProfile)
	mux.HandleFunc("PUT /profiles/{id}/avatar", profileHandler.UpdateAvatar)
	mux.HandleFunc("DELETE /profiles/{id}", profileHandler.DeleteProfile)
	mux.HandleFunc("GET /profiles/{id}/memberships", membershipHandler.ListForUser)

	// Memberships
	mux.HandleFunc("POST /memberships", membershipHandler.CreateMembership)
	mux.HandleFunc("PUT /memberships/{id}/role", membershipHandler.ChangeRole)
	mux.HandleFunc("POST /memberships/{id}/remove", membershipHandler.RemoveMembership)
	mux.HandleFunc("POST /memberships/{id}/activate", membershipHandler.ActivateMembership)
	mux.HandleFunc("GET /families/{id}/memberships", membershipHandler.ListForFamily)

	// Invitations
	mux.HandleFunc("POST /invitations", invitationHandler.CreateInvitation)
	mux.HandleFunc("POST /invitations/redeem", invitationHandler.RedeemInvitation)
	mux.HandleFunc("GET /families/{id}/invitations", invitationHandler.ListForFamily)

	// Sync
	mux.HandleFunc("POST /sync/notifications", syncHandler.Notify)
	mux.HandleFunc("POST /sync/run", syncHandler.Run)

	return Logging(mux)
}
