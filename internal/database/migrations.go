package database

import (
	"fmt"
)

// migration is a named schema change. Migrations are embedded per
// dialect so tests and deployments never depend on an on-disk
// migrations directory.
type migration struct {
	name string
	sql  string
}

// migrationsByDialect maps Dialect.Name() to its ordered migration list.
//
// The membership table deliberately has no foreign keys to families or
// user_profiles: membership rows may outlive their endpoints (orphaned
// links), and cascade deletion is an explicit transactional routine in
// the repository layer, not a schema annotation.
var migrationsByDialect = map[string][]migration{
	"sqlite": {
		{
			name: "001_create_families",
			sql: `
				CREATE TABLE IF NOT EXISTS families (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					code TEXT UNIQUE NOT NULL,
					created_by TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					remote_id TEXT NOT NULL DEFAULT '',
					last_synced_at DATETIME,
					dirty BOOLEAN NOT NULL DEFAULT TRUE
				);
			`,
		},
		{
			name: "002_create_user_profiles",
			sql: `
				CREATE TABLE IF NOT EXISTS user_profiles (
					id TEXT PRIMARY KEY,
					display_name TEXT NOT NULL,
					identity_hash TEXT NOT NULL,
					avatar_url TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					remote_id TEXT NOT NULL DEFAULT '',
					last_synced_at DATETIME,
					dirty BOOLEAN NOT NULL DEFAULT TRUE
				);
			`,
		},
		{
			name: "003_create_memberships",
			sql: `
				CREATE TABLE IF NOT EXISTS memberships (
					id TEXT PRIMARY KEY,
					family_id TEXT,
					user_id TEXT,
					role TEXT NOT NULL,
					status TEXT NOT NULL,
					joined_at DATETIME NOT NULL,
					last_role_change_at DATETIME,
					remote_id TEXT NOT NULL DEFAULT '',
					last_synced_at DATETIME,
					dirty BOOLEAN NOT NULL DEFAULT TRUE
				);
				CREATE INDEX IF NOT EXISTS idx_memberships_family ON memberships(family_id);
				CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id);
			`,
		},
		{
			name: "004_create_invitations",
			sql: `
				CREATE TABLE IF NOT EXISTS invitations (
					id TEXT PRIMARY KEY,
					family_id TEXT NOT NULL,
					email TEXT NOT NULL,
					code TEXT UNIQUE NOT NULL,
					role TEXT NOT NULL,
					invited_by TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					expires_at DATETIME NOT NULL,
					used_at DATETIME,
					used_by TEXT NOT NULL DEFAULT ''
				);
			`,
		},
	},
	"postgres": {
		{
			name: "001_create_families",
			sql: `
				CREATE TABLE IF NOT EXISTS families (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					code TEXT UNIQUE NOT NULL,
					created_by TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL,
					remote_id TEXT NOT NULL DEFAULT '',
					last_synced_at TIMESTAMPTZ,
					dirty BOOLEAN NOT NULL DEFAULT TRUE
				);
			`,
		},
		{
			name: "002_create_user_profiles",
			sql: `
				CREATE TABLE IF NOT EXISTS user_profiles (
					id TEXT PRIMARY KEY,
					display_name TEXT NOT NULL,
					identity_hash TEXT NOT NULL,
					avatar_url TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL,
					remote_id TEXT NOT NULL DEFAULT '',
					last_synced_at TIMESTAMPTZ,
					dirty BOOLEAN NOT NULL DEFAULT TRUE
				);
			`,
		},
		{
			name: "003_create_memberships",
			sql: `
				CREATE TABLE IF NOT EXISTS memberships (
					id TEXT PRIMARY KEY,
					family_id TEXT,
					user_id TEXT,
					role TEXT NOT NULL,
					status TEXT NOT NULL,
					joined_at TIMESTAMPTZ NOT NULL,
					last_role_change_at TIMESTAMPTZ,
					remote_id TEXT NOT NULL DEFAULT '',
					last_synced_at TIMESTAMPTZ,
					dirty BOOLEAN NOT NULL DEFAULT TRUE
				);
				CREATE INDEX IF NOT EXISTS idx_memberships_family ON memberships(family_id);
				CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id);
			`,
		},
		{
			name: "004_create_invitations",
			sql: `
				CREATE TABLE IF NOT EXISTS invitations (
					id TEXT PRIMARY KEY,
					family_id TEXT NOT NULL,
					email TEXT NOT NULL,
					code TEXT UNIQUE NOT NULL,
					role TEXT NOT NULL,
					invited_by TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL,
					expires_at TIMESTAMPTZ NOT NULL,
					used_at TIMESTAMPTZ,
					used_by TEXT NOT NULL DEFAULT ''
				);
			`,
		},
	},
	"mysql": {
		{
			// utf8mb4_bin keeps join-code comparisons case-sensitive,
			// matching the SQLite and PostgreSQL behavior.
			name: "001_create_families",
			sql: `
				CREATE TABLE IF NOT EXISTS families (
					id VARCHAR(36) PRIMARY KEY,
					name VARCHAR(50) NOT NULL,
					code VARCHAR(8) COLLATE utf8mb4_bin UNIQUE NOT NULL,
					created_by VARCHAR(36) NOT NULL,
					created_at DATETIME(6) NOT NULL,
					remote_id VARCHAR(255) NOT NULL DEFAULT '',
					last_synced_at DATETIME(6),
					dirty BOOLEAN NOT NULL DEFAULT TRUE
				);
			`,
		},
		{
			name: "002_create_user_profiles",
			sql: `
				CREATE TABLE IF NOT EXISTS user_profiles (
					id VARCHAR(36) PRIMARY KEY,
					display_name VARCHAR(50) NOT NULL,
					identity_hash VARCHAR(255) NOT NULL,
					avatar_url VARCHAR(2048) NOT NULL DEFAULT '',
					created_at DATETIME(6) NOT NULL,
					remote_id VARCHAR(255) NOT NULL DEFAULT '',
					last_synced_at DATETIME(6),
					dirty BOOLEAN NOT NULL DEFAULT TRUE
				);
			`,
		},
		{
			name: "003_create_memberships",
			sql: `
				CREATE TABLE IF NOT EXISTS memberships (
					id VARCHAR(36) PRIMARY KEY,
					family_id VARCHAR(36),
					user_id VARCHAR(36),
					role VARCHAR(16) NOT NULL,
					status VARCHAR(16) NOT NULL,
					joined_at DATETIME(6) NOT NULL,
					last_role_change_at DATETIME(6),
					remote_id VARCHAR(255) NOT NULL DEFAULT '',
					last_synced_at DATETIME(6),
					dirty BOOLEAN NOT NULL DEFAULT TRUE,
					INDEX idx_memberships_family (family_id),
					INDEX idx_memberships_user (user_id)
				);
			`,
		},
		{
			name: "004_create_invitations",
			sql: `
				CREATE TABLE IF NOT EXISTS invitations (
					id VARCHAR(36) PRIMARY KEY,
					family_id VARCHAR(36) NOT NULL,
					email VARCHAR(255) NOT NULL,
					code VARCHAR(64) COLLATE utf8mb4_bin UNIQUE NOT NULL,
					role VARCHAR(16) NOT NULL,
					invited_by VARCHAR(36) NOT NULL,
					created_at DATETIME(6) NOT NULL,
					expires_at DATETIME(6) NOT NULL,
					used_at DATETIME(6),
					used_by VARCHAR(36) NOT NULL DEFAULT ''
				);
			`,
		},
	},
}

// RunMigrations executes all pending embedded migrations for the
// connection's dialect
func (db *DB) RunMigrations() error {
	// Create migrations table if it doesn't exist
	if _, err := db.DB.Exec(db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, ok := migrationsByDialect[db.Dialect.Name()]
	if !ok {
		return fmt.Errorf("no migrations defined for dialect %s", db.Dialect.Name())
	}

	for _, m := range migrations {
		hasRun, err := db.hasMigrationRun(m.name)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if hasRun {
			continue
		}

		if _, err := db.DB.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.name, err)
		}

		if _, err := db.Exec("INSERT INTO migrations (name) VALUES (?)", m.name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}
	}

	return nil
}

// hasMigrationRun checks whether the named migration has been recorded
func (db *DB) hasMigrationRun(name string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
