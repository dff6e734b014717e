package repository

import (
	"database/sql"
	"fmt"
	"time"

	"hearth/internal/database"
	"hearth/internal/models"
)

// ProfileRepository handles database operations for user profiles
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// CreateProfile inserts a new user profile row
func (r *ProfileRepository) CreateProfile(profile *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (id, display_name, identity_hash, avatar_url, created_at, remote_id, last_synced_at, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		profile.ID, profile.DisplayName, profile.IdentityHash, profile.AvatarURL,
		profile.CreatedAt, profile.RemoteID, nullTime(profile.LastSyncedAt), profile.Dirty,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetProfileByID retrieves a profile by ID, or nil when not found
func (r *ProfileRepository) GetProfileByID(profileID string) (*models.UserProfile, error) {
	query := `
		SELECT id, display_name, identity_hash, avatar_url, created_at, remote_id, last_synced_at, dirty
		FROM user_profiles WHERE id = ?
	`
	return r.scanProfile(r.db.QueryRow(query, profileID))
}

// GetProfileByIdentityHash retrieves the profile created for a platform
// identity, or nil when none exists
func (r *ProfileRepository) GetProfileByIdentityHash(hash string) (*models.UserProfile, error) {
	query := `
		SELECT id, display_name, identity_hash, avatar_url, created_at, remote_id, last_synced_at, dirty
		FROM user_profiles WHERE identity_hash = ?
	`
	return r.scanProfile(r.db.QueryRow(query, hash))
}

// UpdateProfile updates a profile's mutable fields and sync metadata
func (r *ProfileRepository) UpdateProfile(profile *models.UserProfile) error {
	query := `
		UPDATE user_profiles SET display_name = ?, avatar_url = ?, remote_id = ?, last_synced_at = ?, dirty = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query,
		profile.DisplayName, profile.AvatarURL, profile.RemoteID,
		nullTime(profile.LastSyncedAt), profile.Dirty, profile.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// DeleteProfile removes a profile and all of its membership rows in one
// transaction. Referenced families are left intact.
func (r *ProfileRepository) DeleteProfile(profileID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM memberships WHERE user_id = ?", profileID); err != nil {
		return fmt.Errorf("failed to delete profile memberships: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM user_profiles WHERE id = ?", profileID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListDirtyProfiles returns profiles with unsynced local changes
func (r *ProfileRepository) ListDirtyProfiles() ([]models.UserProfile, error) {
	query := `
		SELECT id, display_name, identity_hash, avatar_url, created_at, remote_id, last_synced_at, dirty
		FROM user_profiles WHERE dirty = ` + r.db.GetDialect().BoolValue(true)
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dirty profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.UserProfile
	for rows.Next() {
		profile := models.UserProfile{}
		var lastSynced sql.NullTime
		if err := rows.Scan(
			&profile.ID, &profile.DisplayName, &profile.IdentityHash, &profile.AvatarURL,
			&profile.CreatedAt, &profile.RemoteID, &lastSynced, &profile.Dirty,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		if lastSynced.Valid {
			profile.LastSyncedAt = &lastSynced.Time
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// MarkProfileSynced stamps the profile's sync metadata after a successful push
func (r *ProfileRepository) MarkProfileSynced(profileID, remoteID string, at time.Time) error {
	query := "UPDATE user_profiles SET remote_id = ?, last_synced_at = ?, dirty = " +
		r.db.GetDialect().BoolValue(false) + " WHERE id = ?"
	_, err := r.db.Exec(query, remoteID, at, profileID)
	if err != nil {
		return fmt.Errorf("failed to mark profile synced: %w", err)
	}
	return nil
}

// CountProfiles returns the total number of profile rows
func (r *ProfileRepository) CountProfiles() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM user_profiles").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return count, nil
}

func (r *ProfileRepository) scanProfile(row *sql.Row) (*models.UserProfile, error) {
	profile := &models.UserProfile{}
	var lastSynced sql.NullTime
	err := row.Scan(
		&profile.ID, &profile.DisplayName, &profile.IdentityHash, &profile.AvatarURL,
		&profile.CreatedAt, &profile.RemoteID, &lastSynced, &profile.Dirty,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if lastSynced.Valid {
		profile.LastSyncedAt = &lastSynced.Time
	}
	return profile, nil
}
