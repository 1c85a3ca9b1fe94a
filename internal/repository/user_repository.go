package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/coinsforstudy/backend/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,auth_id,email,role,created_at,updated_at"

// Create inserts a user bound to authID and returns its ID.
func (r *UserRepo) Create(ctx context.Context, authID, email, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var roleVal sql.NullString
	if role != "" {
		roleVal = sql.NullString{String: role, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (auth_id, email, role) VALUES (?,?,?)",
		authID, email, roleVal)
	if err != nil {
		if isDuplicate(err) {
			if strings.Contains(strings.ToLower(err.Error()), "email") {
				return 0, ErrEmailExists
			}
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	return uint64(id), nil
}

// GetByAuthID fetches the user whose back-reference matches the identity.
func (r *UserRepo) GetByAuthID(ctx context.Context, authID string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE auth_id=? LIMIT 1", authID)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

func scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	var (
		u    model.User
		role sql.NullString
	)
	if err := row.Scan(&u.ID, &u.AuthID, &u.Email, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = role.String
	return &u, nil
}
