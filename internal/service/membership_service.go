package service

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hearth/internal/models"
	"hearth/internal/repository"
	"hearth/internal/validation"
)

// MembershipService enforces the cross-entity membership rules. The
// storage layer underneath is permissive; every business invariant
// lives here, checked before any write.
type MembershipService struct {
	membershipRepo *repository.MembershipRepository
	familyRepo     *repository.FamilyRepository
	profileRepo    *repository.ProfileRepository

	// mu makes each check-then-write sequence a single critical
	// section. Checks never block and writes are single statements,
	// so the sections stay short.
	mu sync.Mutex
}

// NewMembershipService creates a new membership service
func NewMembershipService(membershipRepo *repository.MembershipRepository, familyRepo *repository.FamilyRepository, profileRepo *repository.ProfileRepository) *MembershipService {
	return &MembershipService{
		membershipRepo: membershipRepo,
		familyRepo:     familyRepo,
		profileRepo:    profileRepo,
	}
}

// CreateMembership creates an active membership joining the user to the
// family. Constraints are checked in a fixed order:
//
//  1. duplicate active membership ("already a member")
//  2. parent-admin uniqueness, only when role is parent-admin
//
// The order is a contract: re-adding an existing parent-admin reports
// "already a member", never the parent-admin error.
func (s *MembershipService) CreateMembership(familyID, userID string, role models.Role) (*models.Membership, error) {
	return s.createWithStatus(familyID, userID, role, models.StatusActive)
}

// InviteMembership creates a membership in the invited state, subject
// to the same constraint checks as CreateMembership.
func (s *MembershipService) InviteMembership(familyID, userID string, role models.Role) (*models.Membership, error) {
	return s.createWithStatus(familyID, userID, role, models.StatusInvited)
}

func (s *MembershipService) createWithStatus(familyID, userID string, role models.Role, status models.Status) (*models.Membership, error) {
	if !role.Valid() {
		var verrs validation.Errors
		verrs.Add(fmt.Sprintf("role %q is not one of parent_admin, adult, kid, visitor", role))
		return nil, verrs.Err()
	}

	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	profile, err := s.profileRepo.GetProfileByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	duplicate, err := s.membershipRepo.HasActiveMembership(familyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate membership: %w", err)
	}
	if duplicate {
		return nil, &ConstraintError{Rule: "already a member"}
	}

	if role == models.RoleParentAdmin {
		exists, err := s.membershipRepo.HasActiveParentAdmin(familyID, "")
		if err != nil {
			return nil, fmt.Errorf("failed to check parent admin: %w", err)
		}
		if exists {
			return nil, &ConstraintError{Rule: "Parent Admin already exists"}
		}
	}

	membership := &models.Membership{
		ID:       uuid.New().String(),
		Link:     models.LinkedTo(familyID, userID),
		Role:     role,
		Status:   status,
		JoinedAt: time.Now(),
		SyncMeta: models.SyncMeta{Dirty: true},
	}

	if err := s.membershipRepo.CreateMembership(membership); err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	slog.Info("membership created",
		"membership_id", membership.ID,
		"family_id", familyID,
		"user_id", userID,
		"role", role,
		"status", status,
	)
	return membership, nil
}

// UpdateMembershipRole changes a membership's role. Promoting to
// parent-admin requires that no other active parent-admin exists in the
// family; demoting away from parent-admin, or moving between any two
// other roles, is always permitted.
func (s *MembershipService) UpdateMembershipRole(membershipID string, newRole models.Role) (*models.Membership, error) {
	if !newRole.Valid() {
		var verrs validation.Errors
		verrs.Add(fmt.Sprintf("role %q is not one of parent_admin, adult, kid, visitor", newRole))
		return nil, verrs.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	membership, err := s.membershipRepo.GetMembershipByID(membershipID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if membership == nil {
		return nil, ErrMembershipNotFound
	}

	if membership.Role == newRole {
		var verrs validation.Errors
		verrs.Add("member already has this role")
		return nil, verrs.Err()
	}

	if newRole == models.RoleParentAdmin {
		if familyID, ok := membership.Link.FamilyID(); ok {
			exists, err := s.membershipRepo.HasActiveParentAdmin(familyID, membership.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check parent admin: %w", err)
			}
			if exists {
				var verrs validation.Errors
				verrs.Add("Parent Admin already exists in this family")
				return nil, verrs.Err()
			}
		}
	}

	now := time.Now()
	membership.Role = newRole
	membership.LastRoleChangeAt = &now
	membership.MarkDirty()

	if err := s.membershipRepo.UpdateMembership(membership); err != nil {
		return nil, fmt.Errorf("failed to update membership role: %w", err)
	}

	slog.Info("membership role changed", "membership_id", membershipID, "role", newRole)
	return membership, nil
}

// RemoveMembership soft-deletes a membership: the row stays, its status
// moves to removed, and history is preserved for a later re-join.
func (s *MembershipService) RemoveMembership(membershipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	membership, err := s.membershipRepo.GetMembershipByID(membershipID)
	if err != nil {
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if membership == nil {
		return ErrMembershipNotFound
	}

	membership.Status = models.StatusRemoved
	membership.MarkDirty()

	if err := s.membershipRepo.UpdateMembership(membership); err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}

	slog.Info("membership removed", "membership_id", membershipID)
	return nil
}

// ActivateMembership transitions a removed or invited membership back
// to active, re-running the same constraint checks as creation so the
// transition cannot introduce a duplicate active row or a second
// parent-admin.
func (s *MembershipService) ActivateMembership(membershipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	membership, err := s.membershipRepo.GetMembershipByID(membershipID)
	if err != nil {
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if membership == nil {
		return ErrMembershipNotFound
	}
	if membership.Status == models.StatusActive {
		return nil
	}

	familyID, fok := membership.Link.FamilyID()
	userID, uok := membership.Link.UserID()
	if fok && uok {
		duplicate, err := s.membershipRepo.HasActiveMembership(familyID, userID)
		if err != nil {
			return fmt.Errorf("failed to check duplicate membership: %w", err)
		}
		if duplicate {
			return &ConstraintError{Rule: "already a member"}
		}

		if membership.Role == models.RoleParentAdmin {
			exists, err := s.membershipRepo.HasActiveParentAdmin(familyID, membership.ID)
			if err != nil {
				return fmt.Errorf("failed to check parent admin: %w", err)
			}
			if exists {
				return &ConstraintError{Rule: "Parent Admin already exists"}
			}
		}
	}

	membership.Status = models.StatusActive
	membership.MarkDirty()

	if err := s.membershipRepo.UpdateMembership(membership); err != nil {
		return fmt.Errorf("failed to activate membership: %w", err)
	}

	slog.Info("membership activated", "membership_id", membershipID)
	return nil
}

// ActiveMembershipsForFamily returns the family's active memberships
func (s *MembershipService) ActiveMembershipsForFamily(familyID string) ([]models.Membership, error) {
	memberships, err := s.membershipRepo.ActiveMembershipsForFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active memberships: %w", err)
	}
	return memberships, nil
}

// ActiveMembershipsForUser returns the user's active memberships
func (s *MembershipService) ActiveMembershipsForUser(userID string) ([]models.Membership, error) {
	memberships, err := s.membershipRepo.ActiveMembershipsForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active memberships: %w", err)
	}
	return memberships, nil
}

// HasParentAdmin reports whether the family currently has an active
// parent-admin membership
func (s *MembershipService) HasParentAdmin(familyID string) (bool, error) {
	exists, err := s.membershipRepo.HasActiveParentAdmin(familyID, "")
	if err != nil {
		return false, fmt.Errorf("failed to check parent admin: %w", err)
	}
	return exists, nil
}
