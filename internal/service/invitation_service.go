package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hearth/internal/models"
	"hearth/internal/repository"
	"hearth/internal/validation"
)

// InvitationService handles email invites into a family. Redeeming an
// invitation creates the membership through the normal constrained
// path, so every business rule still applies.
type InvitationService struct {
	invitationRepo    *repository.InvitationRepository
	familyRepo        *repository.FamilyRepository
	profileRepo       *repository.ProfileRepository
	membershipService *MembershipService
	email             EmailSender
	inviteTTL         time.Duration
}

// NewInvitationService creates a new invitation service
func NewInvitationService(invitationRepo *repository.InvitationRepository, familyRepo *repository.FamilyRepository, profileRepo *repository.ProfileRepository, membershipService *MembershipService, email EmailSender, inviteTTL time.Duration) *InvitationService {
	return &InvitationService{
		invitationRepo:    invitationRepo,
		familyRepo:        familyRepo,
		profileRepo:       profileRepo,
		membershipService: membershipService,
		email:             email,
		inviteTTL:         inviteTTL,
	}
}

// CreateInvitation invites an email address into the family with the
// given role and sends the invite email
func (s *InvitationService) CreateInvitation(ctx context.Context, familyID, email, invitedBy string, role models.Role) (*models.Invitation, error) {
	if !role.Valid() {
		var verrs validation.Errors
		verrs.Add(fmt.Sprintf("role %q is not one of parent_admin, adult, kid, visitor", role))
		return nil, verrs.Err()
	}
	if err := validation.ValidateEmail(email); err != nil {
		var verrs validation.Errors
		verrs.Add(err.Error())
		return nil, verrs.Err()
	}

	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	inviter, err := s.profileRepo.GetProfileByID(invitedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to get inviter profile: %w", err)
	}
	if inviter == nil {
		return nil, ErrProfileNotFound
	}

	code, err := s.invitationRepo.GenerateInvitationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation code: %w", err)
	}

	inv := &models.Invitation{
		ID:        uuid.New().String(),
		FamilyID:  familyID,
		Email:     email,
		Code:      code,
		Role:      role,
		InvitedBy: invitedBy,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(s.inviteTTL),
	}

	if err := s.invitationRepo.CreateInvitation(inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if err := s.email.SendInvitationEmail(ctx, email, family.Name, family.Code, code, inviter.DisplayName); err != nil {
		slog.Warn("invitation created but email delivery failed", "invitation_id", inv.ID, "error", err)
	}

	slog.Info("invitation created", "invitation_id", inv.ID, "family_id", familyID)
	return inv, nil
}

// RedeemInvitation turns a valid invitation into an active membership
// for the redeeming profile and marks the invitation used
func (s *InvitationService) RedeemInvitation(code, profileID string) (*models.Membership, error) {
	inv, err := s.invitationRepo.GetInvitationByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if inv == nil {
		return nil, ErrInvitationNotFound
	}
	if inv.IsUsed() {
		return nil, ErrInvitationUsed
	}
	if inv.IsExpired() {
		return nil, ErrInvitationExpired
	}

	membership, err := s.membershipService.CreateMembership(inv.FamilyID, profileID, inv.Role)
	if err != nil {
		return nil, err
	}

	if err := s.invitationRepo.MarkInvitationUsed(code, profileID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to mark invitation used: %w", err)
	}

	slog.Info("invitation redeemed", "invitation_id", inv.ID, "profile_id", profileID)
	return membership, nil
}

// ListInvitations returns the family's invitations, newest first
func (s *InvitationService) ListInvitations(familyID string) ([]models.Invitation, error) {
	invitations, err := s.invitationRepo.ListInvitationsForFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}
