package service

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"hearth/internal/models"
	"hearth/internal/repository"
	"hearth/internal/validation"
)

// codeAlphabet is the character set for generated join codes.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// FamilyService handles family business logic: field validation, join
// code uniqueness, and the explicit membership cascade on delete.
type FamilyService struct {
	familyRepo     *repository.FamilyRepository
	membershipRepo *repository.MembershipRepository
	profileRepo    *repository.ProfileRepository

	// mu serializes mutating calls so the code-uniqueness check and
	// the insert behave as one critical section (single-writer
	// discipline; there are no parallel writers against the store).
	mu sync.Mutex
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, membershipRepo *repository.MembershipRepository, profileRepo *repository.ProfileRepository) *FamilyService {
	return &FamilyService{
		familyRepo:     familyRepo,
		membershipRepo: membershipRepo,
		profileRepo:    profileRepo,
	}
}

// CreateFamily validates and creates a new family. The join code must
// be unused; comparison is case-sensitive, so "ABC123" and "abc123"
// name two different families.
func (s *FamilyService) CreateFamily(name, code, creatorID string) (*models.Family, error) {
	var verrs validation.Errors
	if err := validation.ValidateFamilyName(name); err != nil {
		verrs.Add(err.Error())
	}
	if err := validation.ValidateFamilyCode(code); err != nil {
		verrs.Add(err.Error())
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	taken, err := s.familyRepo.CodeExists(code)
	if err != nil {
		return nil, fmt.Errorf("failed to check family code: %w", err)
	}
	if taken {
		return nil, &ConstraintError{Rule: "family code already in use"}
	}

	family := &models.Family{
		ID:        uuid.New().String(),
		Name:      name,
		Code:      code,
		CreatedBy: creatorID,
		CreatedAt: time.Now(),
		SyncMeta:  models.SyncMeta{Dirty: true},
	}

	if err := s.familyRepo.CreateFamily(family); err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	slog.Info("family created", "family_id", family.ID, "code", family.Code)
	return family, nil
}

// GenerateUniqueFamilyCode produces a random 6-8 character alphanumeric
// join code with no existing family match. The code space vastly
// exceeds any realistic family count, so the retry loop terminates
// almost immediately; it never returns a colliding code.
func (s *FamilyService) GenerateUniqueFamilyCode() (string, error) {
	for {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate family code: %w", err)
		}

		taken, err := s.familyRepo.CodeExists(code)
		if err != nil {
			return "", fmt.Errorf("failed to check family code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
}

// GetFamily retrieves a family by ID
func (s *FamilyService) GetFamily(familyID string) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// GetFamilyByCode retrieves a family by its join code (case-sensitive)
func (s *FamilyService) GetFamilyByCode(code string) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get family by code: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// GetFamilyWithMembers retrieves a family together with all of its
// membership rows and the profiles they reference
func (s *FamilyService) GetFamilyWithMembers(familyID string) (*models.FamilyWithMembers, error) {
	family, err := s.GetFamily(familyID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.membershipRepo.MembershipsForFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family memberships: %w", err)
	}

	var profiles []models.UserProfile
	seen := make(map[string]bool)
	for _, m := range memberships {
		userID, ok := m.Link.UserID()
		if !ok || seen[userID] {
			continue
		}
		seen[userID] = true
		profile, err := s.profileRepo.GetProfileByID(userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get member profile: %w", err)
		}
		if profile != nil {
			profiles = append(profiles, *profile)
		}
	}

	return &models.FamilyWithMembers{
		Family:      *family,
		Memberships: memberships,
		Profiles:    profiles,
	}, nil
}

// DeleteFamily deletes a family and all of its memberships. The
// cascade is an explicit transactional routine in the repository, not
// a schema annotation; referenced profiles are untouched.
func (s *FamilyService) DeleteFamily(familyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return ErrFamilyNotFound
	}

	if err := s.familyRepo.DeleteFamily(familyID); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}

	slog.Info("family deleted", "family_id", familyID)
	return nil
}

// randomCode builds a random code of 6-8 characters from the alphabet
func randomCode() (string, error) {
	span, err := rand.Int(rand.Reader, big.NewInt(3))
	if err != nil {
		return "", err
	}
	length := 6 + int(span.Int64())

	code := make([]byte, length)
	for i := range code {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[idx.Int64()]
	}
	return string(code), nil
}
