package repository

import (
	"database/sql"
	"fmt"
	"time"

	"hearth/internal/database"
	"hearth/internal/models"
)

// MembershipRepository handles database operations for memberships.
//
// The store itself is deliberately permissive: it will hold two active
// parent-admins or duplicate active memberships without complaint.
// Business rules are enforced one layer up, in the service.
type MembershipRepository struct {
	db *database.DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *database.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// CreateMembership inserts a new membership row
func (r *MembershipRepository) CreateMembership(m *models.Membership) error {
	familyID, userID := linkColumns(m.Link)
	query := `
		INSERT INTO memberships (id, family_id, user_id, role, status, joined_at, last_role_change_at, remote_id, last_synced_at, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		m.ID, familyID, userID, string(m.Role), string(m.Status),
		m.JoinedAt, nullTime(m.LastRoleChangeAt), m.RemoteID, nullTime(m.LastSyncedAt), m.Dirty,
	)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// GetMembershipByID retrieves a membership by ID, or nil when not found
func (r *MembershipRepository) GetMembershipByID(membershipID string) (*models.Membership, error) {
	query := membershipSelect + " WHERE m.id = ?"
	row := r.db.QueryRow(query, membershipID)
	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// HasActiveMembership reports whether the user already has an active
// membership in the family
func (r *MembershipRepository) HasActiveMembership(familyID, userID string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM memberships
		WHERE family_id = ? AND user_id = ? AND status = ?
	`
	var count int
	err := r.db.QueryRow(query, familyID, userID, string(models.StatusActive)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check active membership: %w", err)
	}
	return count > 0, nil
}

// HasActiveParentAdmin reports whether the family has an active
// parent-admin membership other than excludeID (pass "" to exclude none)
func (r *MembershipRepository) HasActiveParentAdmin(familyID, excludeID string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM memberships
		WHERE family_id = ? AND role = ? AND status = ? AND id <> ?
	`
	var count int
	err := r.db.QueryRow(query, familyID, string(models.RoleParentAdmin), string(models.StatusActive), excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check parent admin: %w", err)
	}
	return count > 0, nil
}

// ActiveMembershipsForFamily returns the family's active memberships,
// with member display names populated via JOIN
func (r *MembershipRepository) ActiveMembershipsForFamily(familyID string) ([]models.Membership, error) {
	query := membershipSelect + `
		WHERE m.family_id = ? AND m.status = ?
		ORDER BY m.joined_at ASC
	`
	return r.queryMemberships(query, familyID, string(models.StatusActive))
}

// ActiveMembershipsForUser returns the user's active memberships across families
func (r *MembershipRepository) ActiveMembershipsForUser(userID string) ([]models.Membership, error) {
	query := membershipSelect + `
		WHERE m.user_id = ? AND m.status = ?
		ORDER BY m.joined_at ASC
	`
	return r.queryMemberships(query, userID, string(models.StatusActive))
}

// MembershipsForFamily returns every membership row for the family,
// regardless of status
func (r *MembershipRepository) MembershipsForFamily(familyID string) ([]models.Membership, error) {
	query := membershipSelect + " WHERE m.family_id = ? ORDER BY m.joined_at ASC"
	return r.queryMemberships(query, familyID)
}

// UpdateMembership updates a membership's mutable fields and sync
// metadata. The join timestamp is immutable and never rewritten.
func (r *MembershipRepository) UpdateMembership(m *models.Membership) error {
	familyID, userID := linkColumns(m.Link)
	query := `
		UPDATE memberships
		SET family_id = ?, user_id = ?, role = ?, status = ?, last_role_change_at = ?, remote_id = ?, last_synced_at = ?, dirty = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query,
		familyID, userID, string(m.Role), string(m.Status),
		nullTime(m.LastRoleChangeAt), m.RemoteID, nullTime(m.LastSyncedAt), m.Dirty,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return nil
}

// DeleteMembership hard-deletes a single membership row. Neither the
// family nor the profile is touched.
func (r *MembershipRepository) DeleteMembership(membershipID string) error {
	if _, err := r.db.Exec("DELETE FROM memberships WHERE id = ?", membershipID); err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	return nil
}

// ListDirtyMemberships returns memberships with unsynced local changes
func (r *MembershipRepository) ListDirtyMemberships() ([]models.Membership, error) {
	query := membershipSelect + " WHERE m.dirty = " + r.db.GetDialect().BoolValue(true)
	return r.queryMemberships(query)
}

// MarkMembershipSynced stamps the membership's sync metadata after a
// successful push
func (r *MembershipRepository) MarkMembershipSynced(membershipID, remoteID string, at time.Time) error {
	query := "UPDATE memberships SET remote_id = ?, last_synced_at = ?, dirty = " +
		r.db.GetDialect().BoolValue(false) + " WHERE id = ?"
	_, err := r.db.Exec(query, remoteID, at, membershipID)
	if err != nil {
		return fmt.Errorf("failed to mark membership synced: %w", err)
	}
	return nil
}

// CountMemberships returns the total number of membership rows
func (r *MembershipRepository) CountMemberships() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM memberships").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

// membershipSelect joins the member's display name so listings can show
// who a row belongs to. The LEFT JOIN keeps orphaned rows visible.
const membershipSelect = `
	SELECT m.id, m.family_id, m.user_id, m.role, m.status, m.joined_at, m.last_role_change_at,
	       m.remote_id, m.last_synced_at, m.dirty, p.display_name
	FROM memberships m
	LEFT JOIN user_profiles p ON m.user_id = p.id
`

func (r *MembershipRepository) queryMemberships(query string, args ...interface{}) ([]models.Membership, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var memberships []models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, *m)
	}
	return memberships, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMembership(row rowScanner) (*models.Membership, error) {
	m := &models.Membership{}
	var familyID, userID, displayName sql.NullString
	var lastRoleChange, lastSynced sql.NullTime
	var role, status string

	err := row.Scan(
		&m.ID, &familyID, &userID, &role, &status, &m.JoinedAt, &lastRoleChange,
		&m.RemoteID, &lastSynced, &m.Dirty, &displayName,
	)
	if err != nil {
		return nil, err
	}

	m.Role = models.Role(role)
	m.Status = models.Status(status)
	if familyID.Valid && userID.Valid {
		m.Link = models.LinkedTo(familyID.String, userID.String)
	} else {
		m.Link = models.OrphanedLink()
	}
	if lastRoleChange.Valid {
		m.LastRoleChangeAt = &lastRoleChange.Time
	}
	if lastSynced.Valid {
		m.LastSyncedAt = &lastSynced.Time
	}
	if displayName.Valid {
		m.UserDisplayName = displayName.String
	}
	return m, nil
}

// linkColumns converts a membership link into nullable columns
func linkColumns(link models.MembershipLink) (interface{}, interface{}) {
	familyID, ok := link.FamilyID()
	if !ok {
		return nil, nil
	}
	userID, _ := link.UserID()
	return familyID, userID
}
