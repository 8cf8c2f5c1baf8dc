package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all database migrations
func GetMigrations(dbType string) []Migration {
	if dbType == "postgres" {
		return getPostgresMigrations()
	}
	return getSQLiteMigrations()
}

// getPostgresMigrations returns PostgreSQL migrations
func getPostgresMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id VARCHAR(36) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) UNIQUE NOT NULL,
				email_verified BOOLEAN NOT NULL DEFAULT FALSE,
				image TEXT,
				role VARCHAR(20) NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
				banned BOOLEAN NOT NULL DEFAULT FALSE,
				ban_reason TEXT,
				ban_expires TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS sessions (
				id VARCHAR(36) PRIMARY KEY,
				user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token VARCHAR(255) UNIQUE NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				ip_address VARCHAR(45),
				user_agent TEXT,
				active_organization_id VARCHAR(36),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     3,
			Description: "Create accounts table",
			SQL: `CREATE TABLE IF NOT EXISTS accounts (
				id VARCHAR(36) PRIMARY KEY,
				user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				provider_id VARCHAR(50) NOT NULL,
				account_id VARCHAR(255) NOT NULL,
				password VARCHAR(255),
				access_token TEXT,
				refresh_token TEXT,
				access_token_expires_at TIMESTAMP WITH TIME ZONE,
				scope TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (provider_id, account_id)
			)`,
		},
		{
			Version:     4,
			Description: "Create verifications table",
			SQL: `CREATE TABLE IF NOT EXISTS verifications (
				id VARCHAR(36) PRIMARY KEY,
				identifier VARCHAR(255) NOT NULL,
				value VARCHAR(255) NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     5,
			Description: "Create organizations table",
			SQL: `CREATE TABLE IF NOT EXISTS organizations (
				id VARCHAR(36) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				slug VARCHAR(255) UNIQUE NOT NULL,
				logo TEXT,
				metadata TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     6,
			Description: "Create members table",
			SQL: `CREATE TABLE IF NOT EXISTS members (
				id VARCHAR(36) PRIMARY KEY,
				organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				role VARCHAR(20) NOT NULL DEFAULT 'member' CHECK (role IN ('owner', 'admin', 'member')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (organization_id, user_id)
			)`,
		},
		{
			Version:     7,
			Description: "Create invitations table",
			SQL: `CREATE TABLE IF NOT EXISTS invitations (
				id VARCHAR(36) PRIMARY KEY,
				organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				email VARCHAR(255) NOT NULL,
				role VARCHAR(20) NOT NULL DEFAULT 'member' CHECK (role IN ('owner', 'admin', 'member')),
				status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected', 'canceled', 'expired')),
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				inviter_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     8,
			Description: "Create media table",
			SQL: `CREATE TABLE IF NOT EXISTS media (
				id VARCHAR(36) PRIMARY KEY,
				user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				organization_id VARCHAR(36) REFERENCES organizations(id) ON DELETE SET NULL,
				file_name VARCHAR(255) NOT NULL,
				file_key VARCHAR(255) UNIQUE NOT NULL,
				mime_type VARCHAR(100) NOT NULL,
				size_bytes BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     9,
			Description: "Create rate limits table",
			SQL: `CREATE TABLE IF NOT EXISTS rate_limits (
				key VARCHAR(255) PRIMARY KEY,
				count INTEGER NOT NULL DEFAULT 0,
				last_request BIGINT NOT NULL DEFAULT 0
			)`,
		},
		{
			Version:     10,
			Description: "Create activity logs table",
			SQL: `CREATE TABLE IF NOT EXISTS activity_logs (
				id VARCHAR(36) PRIMARY KEY,
				user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				session_id VARCHAR(36),
				action VARCHAR(100) NOT NULL,
				ip_address VARCHAR(45),
				user_agent TEXT,
				metadata TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     11,
			Description: "Create trusted devices table",
			SQL: `CREATE TABLE IF NOT EXISTS trusted_devices (
				id VARCHAR(36) PRIMARY KEY,
				user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token_hash VARCHAR(64) UNIQUE NOT NULL,
				device_name VARCHAR(255),
				last_used_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     12,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
			CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
			CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
			CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
			CREATE INDEX IF NOT EXISTS idx_verifications_identifier ON verifications(identifier);
			CREATE INDEX IF NOT EXISTS idx_verifications_value ON verifications(value);
			CREATE INDEX IF NOT EXISTS idx_members_organization_id ON members(organization_id);
			CREATE INDEX IF NOT EXISTS idx_members_user_id ON members(user_id);
			CREATE INDEX IF NOT EXISTS idx_invitations_organization_id ON invitations(organization_id);
			CREATE INDEX IF NOT EXISTS idx_invitations_email ON invitations(email);
			CREATE INDEX IF NOT EXISTS idx_media_user_id ON media(user_id);
			CREATE INDEX IF NOT EXISTS idx_activity_logs_user_id ON activity_logs(user_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_trusted_devices_user_id ON trusted_devices(user_id)`,
		},
	}
}

// getSQLiteMigrations returns SQLite migrations
func getSQLiteMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT UNIQUE NOT NULL,
				email_verified BOOLEAN NOT NULL DEFAULT 0,
				image TEXT,
				role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
				banned BOOLEAN NOT NULL DEFAULT 0,
				ban_reason TEXT,
				ban_expires DATETIME,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     2,
			Description: "Create sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token TEXT UNIQUE NOT NULL,
				expires_at DATETIME NOT NULL,
				ip_address TEXT,
				user_agent TEXT,
				active_organization_id TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     3,
			Description: "Create accounts table",
			SQL: `CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				provider_id TEXT NOT NULL,
				account_id TEXT NOT NULL,
				password TEXT,
				access_token TEXT,
				refresh_token TEXT,
				access_token_expires_at DATETIME,
				scope TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (provider_id, account_id)
			)`,
		},
		{
			Version:     4,
			Description: "Create verifications table",
			SQL: `CREATE TABLE IF NOT EXISTS verifications (
				id TEXT PRIMARY KEY,
				identifier TEXT NOT NULL,
				value TEXT NOT NULL,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     5,
			Description: "Create organizations table",
			SQL: `CREATE TABLE IF NOT EXISTS organizations (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				slug TEXT UNIQUE NOT NULL,
				logo TEXT,
				metadata TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     6,
			Description: "Create members table",
			SQL: `CREATE TABLE IF NOT EXISTS members (
				id TEXT PRIMARY KEY,
				organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('owner', 'admin', 'member')),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (organization_id, user_id)
			)`,
		},
		{
			Version:     7,
			Description: "Create invitations table",
			SQL: `CREATE TABLE IF NOT EXISTS invitations (
				id TEXT PRIMARY KEY,
				organization_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				email TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('owner', 'admin', 'member')),
				status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected', 'canceled', 'expired')),
				expires_at DATETIME NOT NULL,
				inviter_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     8,
			Description: "Create media table",
			SQL: `CREATE TABLE IF NOT EXISTS media (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				organization_id TEXT REFERENCES organizations(id) ON DELETE SET NULL,
				file_name TEXT NOT NULL,
				file_key TEXT UNIQUE NOT NULL,
				mime_type TEXT NOT NULL,
				size_bytes INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     9,
			Description: "Create rate limits table",
			SQL: `CREATE TABLE IF NOT EXISTS rate_limits (
				key TEXT PRIMARY KEY,
				count INTEGER NOT NULL DEFAULT 0,
				last_request INTEGER NOT NULL DEFAULT 0
			)`,
		},
		{
			Version:     10,
			Description: "Create activity logs table",
			SQL: `CREATE TABLE IF NOT EXISTS activity_logs (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				session_id TEXT,
				action TEXT NOT NULL,
				ip_address TEXT,
				user_agent TEXT,
				metadata TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     11,
			Description: "Create trusted devices table",
			SQL: `CREATE TABLE IF NOT EXISTS trusted_devices (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token_hash TEXT UNIQUE NOT NULL,
				device_name TEXT,
				last_used_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     12,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
			CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
			CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
			CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
			CREATE INDEX IF NOT EXISTS idx_verifications_identifier ON verifications(identifier);
			CREATE INDEX IF NOT EXISTS idx_verifications_value ON verifications(value);
			CREATE INDEX IF NOT EXISTS idx_members_organization_id ON members(organization_id);
			CREATE INDEX IF NOT EXISTS idx_members_user_id ON members(user_id);
			CREATE INDEX IF NOT EXISTS idx_invitations_organization_id ON invitations(organization_id);
			CREATE INDEX IF NOT EXISTS idx_invitations_email ON invitations(email);
			CREATE INDEX IF NOT EXISTS idx_media_user_id ON media(user_id);
			CREATE INDEX IF NOT EXISTS idx_activity_logs_user_id ON activity_logs(user_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_trusted_devices_user_id ON trusted_devices(user_id)`,
		},
	}
}

// createMigrationsTable creates the migrations tracking table
func createMigrationsTable(db *sql.DB, dbType string) error {
	var query string
	if dbType == "postgres" {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`
	} else {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}

	_, err := db.Exec(query)
	return err
}

// getAppliedMigrations returns the list of applied migration versions
func getAppliedMigrations(db *sql.DB) (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return applied, err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return applied, err
		}
		applied[version] = true
	}

	return applied, nil
}

// recordMigration records that a migration has been applied
func recordMigration(db *sql.DB, dbType string, version int) error {
	var query string
	if dbType == "postgres" {
		query = "INSERT INTO schema_migrations (version) VALUES ($1)"
	} else {
		query = "INSERT INTO schema_migrations (version) VALUES (?)"
	}
	_, err := db.Exec(query, version)
	return err
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB, dbType string) error {
	if err := createMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %v", err)
	}

	migrations := GetMigrations(dbType)

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		log.Printf("[DB] Applying migration %d: %s", migration.Version, migration.Description)

		// Split SQL by semicolon and execute each statement
		statements := strings.Split(migration.SQL, ";")
		for _, stmt := range statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}

			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to apply migration %d: %v", migration.Version, err)
			}
		}

		if err := recordMigration(db, dbType, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %v", migration.Version, err)
		}
	}

	return nil
}
