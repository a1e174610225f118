package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/spot-saver/internal/model"
)

// ProfileRepo reads rows of the `profiles` table.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

// GetByID returns the profile keyed by user id. A missing row yields
// sql.ErrNoRows; callers decide whether that is an error.
func (r *ProfileRepo) GetByID(ctx context.Context, userID string) (model.Profile, error) {
	var (
		p        model.Profile
		email    sql.NullString
		fullName sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, email, full_name FROM profiles WHERE id=? LIMIT 1",
		userID).Scan(&p.ID, &email, &fullName)
	if err != nil {
		return model.Profile{}, err
	}
	p.Email = email.String
	p.FullName = fullName.String
	return p, nil
}
