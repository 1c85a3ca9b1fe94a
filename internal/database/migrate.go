package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Statements are idempotent so Migrate can run on every start.
var schema = []struct {
	table string
	ddl   string
}{
	{"users", `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	auth_id VARCHAR(64) NOT NULL,
	email VARCHAR(255) NOT NULL,
	role VARCHAR(16) NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uq_users_auth_id (auth_id),
	UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"profiles", `
CREATE TABLE IF NOT EXISTS profiles (
	user_id BIGINT UNSIGNED NOT NULL PRIMARY KEY,
	display_name VARCHAR(80) NOT NULL DEFAULT '',
	photo_url VARCHAR(512) NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT fk_profiles_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"credentials", `
CREATE TABLE IF NOT EXISTS credentials (
	auth_id VARCHAR(64) NOT NULL PRIMARY KEY,
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uq_credentials_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"refresh_tokens", `
CREATE TABLE IF NOT EXISTS refresh_tokens (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	auth_id VARCHAR(64) NOT NULL,
	token_hash CHAR(64) NOT NULL,
	expires_at DATETIME NOT NULL,
	revoked_at DATETIME NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uq_refresh_tokens_hash (token_hash),
	KEY idx_refresh_tokens_auth_id (auth_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

// Migrate creates the tables the service reads and writes.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, s := range schema {
		if _, err := db.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", s.table, err)
		}
	}
	return nil
}
