package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/coinsforstudy/backend/internal/model"
	"github.com/coinsforstudy/backend/internal/utils"
)

// CredentialRepo stores email/password credentials for the local auth
// provider.
type CredentialRepo struct{ DB *sql.DB }

func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{DB: db} }

// Create hashes password with the given bcrypt cost and inserts the row.
func (r *CredentialRepo) Create(ctx context.Context, authID, email, password string, cost int) error {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO credentials (auth_id, email, password_hash) VALUES (?,?,?)",
		authID, email, hash)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetByEmail fetches a credential by normalized email.
func (r *CredentialRepo) GetByEmail(ctx context.Context, email string) (*model.Credential, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var c model.Credential
	err := r.DB.QueryRowContext(ctx,
		"SELECT auth_id,email,password_hash,created_at FROM credentials WHERE email=? LIMIT 1",
		email).Scan(&c.AuthID, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	return &c, nil
}

// GetByAuthID fetches a credential by identity id.
func (r *CredentialRepo) GetByAuthID(ctx context.Context, authID string) (*model.Credential, error) {
	var c model.Credential
	err := r.DB.QueryRowContext(ctx,
		"SELECT auth_id,email,password_hash,created_at FROM credentials WHERE auth_id=? LIMIT 1",
		authID).Scan(&c.AuthID, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	return &c, nil
}
