package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coinsforstudy/backend/internal/model"
)

// ProfileRepo reads and writes the display profile attached to a user.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

// GetByUserID returns the profile of userID or ErrNotFound.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Profile, error) {
	var (
		p     model.Profile
		photo sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id,display_name,photo_url,updated_at FROM profiles WHERE user_id=? LIMIT 1",
		userID).Scan(&p.UserID, &p.DisplayName, &photo, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.PhotoURL = photo.String
	return &p, nil
}

// Upsert creates the profile or overwrites its display fields.
func (r *ProfileRepo) Upsert(ctx context.Context, p model.Profile) error {
	var photo sql.NullString
	if p.PhotoURL != "" {
		photo = sql.NullString{String: p.PhotoURL, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO profiles (user_id, display_name, photo_url) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE display_name=VALUES(display_name), photo_url=VALUES(photo_url), updated_at=UTC_TIMESTAMP()`,
		p.UserID, p.DisplayName, photo)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
