// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the session store to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned by UserRepo.Create when the address is
// already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrSlotUnavailable is returned when a booking targets a slot that is
// not (or no longer) available. Handlers should translate this into an
// HTTP 409 response.
var ErrSlotUnavailable = errors.New("slot unavailable")

// ErrBookingIDTaken is returned when a booking id supplied by the caller
// already belongs to another user's booking.
var ErrBookingIDTaken = errors.New("booking id already in use")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as seeding a catalog that already has rows.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether err is a MySQL duplicate entry error (1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
