package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hearth/internal/models"
	"hearth/internal/repository"
	"hearth/internal/validation"
)

// ProfileService handles user profile business logic. The identity
// hash arrives from the platform sign-in flow; this layer only checks
// its shape and otherwise treats it as opaque.
type ProfileService struct {
	profileRepo *repository.ProfileRepository
}

// NewProfileService creates a new profile service
func NewProfileService(profileRepo *repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// CreateProfile validates and creates a new user profile
func (s *ProfileService) CreateProfile(displayName, identityHash string) (*models.UserProfile, error) {
	var verrs validation.Errors
	if err := validation.ValidateDisplayName(displayName); err != nil {
		verrs.Add(err.Error())
	}
	if err := validation.ValidateIdentityHash(identityHash); err != nil {
		verrs.Add(err.Error())
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	profile := &models.UserProfile{
		ID:           uuid.New().String(),
		DisplayName:  displayName,
		IdentityHash: identityHash,
		CreatedAt:    time.Now(),
		SyncMeta:     models.SyncMeta{Dirty: true},
	}

	if err := s.profileRepo.CreateProfile(profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	slog.Info("profile created", "profile_id", profile.ID)
	return profile, nil
}

// GetProfile retrieves a profile by ID
func (s *ProfileService) GetProfile(profileID string) (*models.UserProfile, error) {
	profile, err := s.profileRepo.GetProfileByID(profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// GetProfileByIdentityHash retrieves the profile for a platform identity
func (s *ProfileService) GetProfileByIdentityHash(hash string) (*models.UserProfile, error) {
	profile, err := s.profileRepo.GetProfileByIdentityHash(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by identity: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// UpdateAvatar sets or clears the profile's avatar reference
func (s *ProfileService) UpdateAvatar(profileID, avatarURL string) error {
	profile, err := s.GetProfile(profileID)
	if err != nil {
		return err
	}

	profile.AvatarURL = avatarURL
	profile.MarkDirty()

	if err := s.profileRepo.UpdateProfile(profile); err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return nil
}

// DeleteProfile deletes a profile and all of its memberships. The
// cascade is explicit; referenced families are untouched.
func (s *ProfileService) DeleteProfile(profileID string) error {
	profile, err := s.profileRepo.GetProfileByID(profileID)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return ErrProfileNotFound
	}

	if err := s.profileRepo.DeleteProfile(profileID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	slog.Info("profile deleted", "profile_id", profileID)
	return nil
}
