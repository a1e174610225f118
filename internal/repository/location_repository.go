package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/iliyamo/spot-saver/internal/model"
)

// LocationRepo reads the parking catalog: locations, their slots and
// their reviews.  Derived fields are left zero; the catalog computes them.
type LocationRepo struct {
	db *sql.DB
}

// NewLocationRepo returns a LocationRepo bound to the given database.
func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{db: db} }

// ListAll returns every location in catalog order (by position, then id)
// with slots and reviews attached.
func (r *LocationRepo) ListAll(ctx context.Context) ([]model.Location, error) {
	const q = `SELECT id, name, address, description, operating_hours, contact_phone,
                      rate_cents, rate_unit, is_secure, amenities, images
               FROM locations
               ORDER BY position ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locs := make([]model.Location, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			l      model.Location
			images sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.Description, &l.OperatingHours, &l.ContactPhone,
			&l.RateCents, &l.RateUnit, &l.Secure, &l.Amenities, &images); err != nil {
			return nil, err
		}
		l.Images = []string{}
		if images.Valid && images.String != "" {
			if err := json.Unmarshal([]byte(images.String), &l.Images); err != nil {
				return nil, err
			}
		}
		l.Slots = []model.Slot{}
		l.Reviews = []model.Review{}
		index[l.ID] = len(locs)
		locs = append(locs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return locs, nil
	}

	srows, err := r.db.QueryContext(ctx,
		`SELECT location_id, id, number, type, available, features FROM slots ORDER BY location_id, position, id`)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var (
			locID    string
			s        model.Slot
			features sql.NullString
		)
		if err := srows.Scan(&locID, &s.ID, &s.Number, &s.Type, &s.Available, &features); err != nil {
			return nil, err
		}
		s.Features = splitList(features.String)
		if i, ok := index[locID]; ok {
			locs[i].Slots = append(locs[i].Slots, s)
		}
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}

	rrows, err := r.db.QueryContext(ctx,
		`SELECT id, location_id, author, rating, comment, review_date FROM reviews ORDER BY location_id, id`)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()
	for rrows.Next() {
		var (
			locID string
			rv    model.Review
			date  time.Time
		)
		if err := rrows.Scan(&rv.ID, &locID, &rv.Author, &rv.Rating, &rv.Comment, &date); err != nil {
			return nil, err
		}
		rv.Date = date.Format("2006-01-02")
		if i, ok := index[locID]; ok {
			locs[i].Reviews = append(locs[i].Reviews, rv)
		}
	}
	if err := rrows.Err(); err != nil {
		return nil, err
	}
	return locs, nil
}

// Count returns the number of location rows.
func (r *LocationRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`).Scan(&n)
	return n, err
}

// Seed inserts the given locations, slots and reviews in one transaction.
// It refuses with ErrConflict when the catalog already has rows.
func (r *LocationRepo) Seed(ctx context.Context, locs []model.Location) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}

	for pos, l := range locs {
		images, err := json.Marshal(l.Images)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO locations (id, position, name, address, description, operating_hours, contact_phone,
                                    rate_cents, rate_unit, is_secure, amenities, images)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, pos, l.Name, l.Address, l.Description, l.OperatingHours, l.ContactPhone,
			l.RateCents, l.RateUnit, l.Secure, l.Amenities, string(images)); err != nil {
			return err
		}
		for spos, s := range l.Slots {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO slots (location_id, id, position, number, type, available, features) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				l.ID, s.ID, spos, s.Number, s.Type, s.Available, strings.Join(s.Features, ",")); err != nil {
				return err
			}
		}
		for _, rv := range l.Reviews {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO reviews (location_id, author, rating, comment, review_date) VALUES (?, ?, ?, ?, ?)`,
				l.ID, rv.Author, rv.Rating, rv.Comment, rv.Date); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
