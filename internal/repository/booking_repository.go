package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/google/uuid"
    "gopkg.in/guregu/null.v4"

    "github.com/iliyamo/spot-saver/internal/model"
)

// BookingRepo provides access to the bookings table.  Bookings are only
// ever inserted and read by this service; status changes happen
// elsewhere.  Booking dates are DATE columns, timestamps are UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts a confirmed booking.  Inside one transaction it locks the
// referenced slot row, rejects the write with ErrSlotUnavailable when the
// slot is missing or not available, and then inserts the booking.  The
// generated ID, status and creation time are written back into b.
//
// A caller-supplied ID makes the write idempotent: when a booking with
// that ID already exists for the same user it is returned unchanged.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
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

    var available bool
    err = tx.QueryRowContext(ctx,
        `SELECT available FROM slots WHERE location_id = ? AND id = ? FOR UPDATE`,
        b.LocationID, b.SlotID).Scan(&available)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrSlotUnavailable
        }
        return err
    }
    if !available {
        return ErrSlotUnavailable
    }

    if b.ID != "" {
        var (
            owner   string
            status  null.String
            created time.Time
        )
        err = tx.QueryRowContext(ctx,
            `SELECT user_id, status, created_at FROM bookings WHERE id = ?`, b.ID).
            Scan(&owner, &status, &created)
        switch {
        case err == nil:
            if owner != b.UserID {
                return ErrBookingIDTaken
            }
            b.Status = status
            b.CreatedAt = created
            return nil
        case !errors.Is(err, sql.ErrNoRows):
            return err
        }
    } else {
        b.ID = uuid.NewString()
    }
    if !b.Status.Valid {
        b.Status = null.StringFrom(model.BookingConfirmed)
    }
    b.CreatedAt = time.Now().UTC().Truncate(time.Second)
    const q = `INSERT INTO bookings
                 (id, user_id, location_id, slot_id, booking_date, duration_hours, total_cents, status, add_ons, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    if _, err := tx.ExecContext(ctx, q,
        b.ID, b.UserID, b.LocationID, b.SlotID, b.BookingDate, b.DurationHours,
        b.TotalCents, b.Status, strings.Join(b.AddOns, ","), b.CreatedAt,
    ); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ListByUser returns all bookings of the user joined with the location
// name and slot number, newest booking date first.  When no bookings
// exist an empty, non-nil slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
    const q = `SELECT b.id, b.user_id, b.location_id, l.name, b.slot_id, s.number,
                      b.booking_date, b.duration_hours, b.total_cents, b.status,
                      b.add_ons, b.created_at
               FROM bookings b
               JOIN locations l ON l.id = b.location_id
               LEFT JOIN slots s ON s.location_id = b.location_id AND s.id = b.slot_id
               WHERE b.user_id = ?
               ORDER BY b.booking_date DESC, b.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := make([]model.Booking, 0)
    for rows.Next() {
        var (
            b          model.Booking
            slotNumber sql.NullString
            date       time.Time
            addOns     sql.NullString
        )
        if err := rows.Scan(
            &b.ID, &b.UserID, &b.LocationID, &b.LocationName, &b.SlotID, &slotNumber,
            &date, &b.DurationHours, &b.TotalCents, &b.Status,
            &addOns, &b.CreatedAt,
        ); err != nil {
            return nil, err
        }
        b.SlotNumber = slotNumber.String
        b.BookingDate = date.Format("2006-01-02")
        b.AddOns = splitList(addOns.String)
        out = append(out, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// splitList turns a comma-separated column into a slice, dropping blanks.
func splitList(s string) []string {
    out := []string{}
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
