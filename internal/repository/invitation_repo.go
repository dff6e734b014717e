package repository

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"hearth/internal/database"
	"hearth/internal/models"
)

// InvitationRepository handles database operations for family invitations
type InvitationRepository struct {
	db *database.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// GenerateInvitationCode generates a random invitation code
func (r *InvitationRepository) GenerateInvitationCode() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CreateInvitation inserts a new invitation row
func (r *InvitationRepository) CreateInvitation(inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (id, family_id, email, code, role, invited_by, created_at, expires_at, used_at, used_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		inv.ID, inv.FamilyID, inv.Email, inv.Code, string(inv.Role),
		inv.InvitedBy, inv.CreatedAt, inv.ExpiresAt, nullTime(inv.UsedAt), inv.UsedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// GetInvitationByCode retrieves an invitation by code, with the
// inviter's display name populated via JOIN. Returns nil when not found.
func (r *InvitationRepository) GetInvitationByCode(code string) (*models.Invitation, error) {
	query := `
		SELECT i.id, i.family_id, i.email, i.code, i.role, i.invited_by,
		       i.created_at, i.expires_at, i.used_at, i.used_by, p.display_name
		FROM invitations i
		LEFT JOIN user_profiles p ON i.invited_by = p.id
		WHERE i.code = ?
	`

	inv := &models.Invitation{}
	var role string
	var usedAt sql.NullTime
	var inviterName sql.NullString

	err := r.db.QueryRow(query, code).Scan(
		&inv.ID, &inv.FamilyID, &inv.Email, &inv.Code, &role, &inv.InvitedBy,
		&inv.CreatedAt, &inv.ExpiresAt, &usedAt, &inv.UsedBy, &inviterName,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	inv.Role = models.Role(role)
	if usedAt.Valid {
		inv.UsedAt = &usedAt.Time
	}
	if inviterName.Valid {
		inv.InviterName = inviterName.String
	}
	return inv, nil
}

// MarkInvitationUsed records who redeemed the invitation and when
func (r *InvitationRepository) MarkInvitationUsed(code, profileID string, at time.Time) error {
	query := "UPDATE invitations SET used_at = ?, used_by = ? WHERE code = ?"
	if _, err := r.db.Exec(query, at, profileID, code); err != nil {
		return fmt.Errorf("failed to mark invitation used: %w", err)
	}
	return nil
}

// ListInvitationsForFamily retrieves the family's invitations, newest first
func (r *InvitationRepository) ListInvitationsForFamily(familyID string) ([]models.Invitation, error) {
	query := `
		SELECT i.id, i.family_id, i.email, i.code, i.role, i.invited_by,
		       i.created_at, i.expires_at, i.used_at, i.used_by, p.display_name
		FROM invitations i
		LEFT JOIN user_profiles p ON i.invited_by = p.id
		WHERE i.family_id = ?
		ORDER BY i.created_at DESC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		var inv models.Invitation
		var role string
		var usedAt sql.NullTime
		var inviterName sql.NullString

		if err := rows.Scan(
			&inv.ID, &inv.FamilyID, &inv.Email, &inv.Code, &role, &inv.InvitedBy,
			&inv.CreatedAt, &inv.ExpiresAt, &usedAt, &inv.UsedBy, &inviterName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}

		inv.Role = models.Role(role)
		if usedAt.Valid {
			inv.UsedAt = &usedAt.Time
		}
		if inviterName.Valid {
			inv.InviterName = inviterName.String
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}
