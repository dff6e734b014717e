package repository

import (
	"database/sql"
	"fmt"
	"time"

	"hearth/internal/database"
	"hearth/internal/models"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily inserts a new family row
func (r *FamilyRepository) CreateFamily(family *models.Family) error {
	query := `
		INSERT INTO families (id, name, code, created_by, created_at, remote_id, last_synced_at, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		family.ID, family.Name, family.Code, family.CreatedBy, family.CreatedAt,
		family.RemoteID, nullTime(family.LastSyncedAt), family.Dirty,
	)
	if err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	return nil
}

// GetFamilyByID retrieves a family by ID, or nil when not found
func (r *FamilyRepository) GetFamilyByID(familyID string) (*models.Family, error) {
	query := `
		SELECT id, name, code, created_by, created_at, remote_id, last_synced_at, dirty
		FROM families WHERE id = ?
	`
	return r.scanFamily(r.db.QueryRow(query, familyID))
}

// GetFamilyByCode retrieves a family by its join code. The comparison
// is case-sensitive on every supported dialect.
func (r *FamilyRepository) GetFamilyByCode(code string) (*models.Family, error) {
	query := `
		SELECT id, name, code, created_by, created_at, remote_id, last_synced_at, dirty
		FROM families WHERE code = ?
	`
	return r.scanFamily(r.db.QueryRow(query, code))
}

// CodeExists reports whether any family holds the given join code
func (r *FamilyRepository) CodeExists(code string) (bool, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM families WHERE code = ?", code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check family code: %w", err)
	}
	return count > 0, nil
}

// UpdateFamily updates a family's mutable fields and sync metadata.
// Identity columns (id, created_by, created_at) are never touched.
func (r *FamilyRepository) UpdateFamily(family *models.Family) error {
	query := `
		UPDATE families SET name = ?, code = ?, remote_id = ?, last_synced_at = ?, dirty = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query,
		family.Name, family.Code, family.RemoteID, nullTime(family.LastSyncedAt), family.Dirty,
		family.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}

// DeleteFamily removes a family and all of its membership rows in one
// transaction. Referenced user profiles are left intact.
func (r *FamilyRepository) DeleteFamily(familyID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM memberships WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family memberships: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM families WHERE id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListDirtyFamilies returns families with unsynced local changes
func (r *FamilyRepository) ListDirtyFamilies() ([]models.Family, error) {
	query := `
		SELECT id, name, code, created_by, created_at, remote_id, last_synced_at, dirty
		FROM families WHERE dirty = ` + r.db.GetDialect().BoolValue(true)
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dirty families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		family, err := scanFamilyRow(rows)
		if err != nil {
			return nil, err
		}
		families = append(families, *family)
	}
	return families, rows.Err()
}

// MarkFamilySynced stamps the family's sync metadata after a successful push
func (r *FamilyRepository) MarkFamilySynced(familyID, remoteID string, at time.Time) error {
	query := "UPDATE families SET remote_id = ?, last_synced_at = ?, dirty = " +
		r.db.GetDialect().BoolValue(false) + " WHERE id = ?"
	_, err := r.db.Exec(query, remoteID, at, familyID)
	if err != nil {
		return fmt.Errorf("failed to mark family synced: %w", err)
	}
	return nil
}

// CountFamilies returns the total number of family rows
func (r *FamilyRepository) CountFamilies() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM families").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count families: %w", err)
	}
	return count, nil
}

func (r *FamilyRepository) scanFamily(row *sql.Row) (*models.Family, error) {
	family := &models.Family{}
	var lastSynced sql.NullTime
	err := row.Scan(
		&family.ID, &family.Name, &family.Code, &family.CreatedBy, &family.CreatedAt,
		&family.RemoteID, &lastSynced, &family.Dirty,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if lastSynced.Valid {
		family.LastSyncedAt = &lastSynced.Time
	}
	return family, nil
}

func scanFamilyRow(rows *sql.Rows) (*models.Family, error) {
	family := &models.Family{}
	var lastSynced sql.NullTime
	err := rows.Scan(
		&family.ID, &family.Name, &family.Code, &family.CreatedBy, &family.CreatedAt,
		&family.RemoteID, &lastSynced, &family.Dirty,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan family: %w", err)
	}
	if lastSynced.Valid {
		family.LastSyncedAt = &lastSynced.Time
	}
	return family, nil
}

// nullTime converts an optional time into a driver-friendly value
func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
