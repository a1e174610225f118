package model

import (
    "time"

    "gopkg.in/guregu/null.v4"
)

// Booking statuses.  Status transitions are owned by the store; this
// service only reads them.
const (
    BookingConfirmed = "confirmed"
    BookingCancelled = "cancelled"
    BookingCompleted = "completed"
)

// Booking records a completed reservation of a slot, as stored in the
// `bookings` table joined with its location and slot.
//
// Fields:
//  ID            – primary key (uuid).
//  UserID        – user who owns the booking.
//  LocationName  – name of the referenced location (joined).
//  SlotNumber    – display number of the referenced slot (joined).
//  BookingDate   – calendar date of the booking, YYYY-MM-DD.
//  DurationHours – whole hours, 1..24.
//  TotalCents    – total price in cents including add-ons.
//  Status        – confirmed | cancelled | completed, or null when unknown.
//  CreatedAt     – creation timestamp.
type Booking struct {
    ID            string      `json:"id"`
    UserID        string      `json:"user_id"`
    LocationID    string      `json:"location_id"`
    LocationName  string      `json:"location_name"`
    SlotID        string      `json:"slot_id"`
    SlotNumber    string      `json:"slot_number"`
    BookingDate   string      `json:"booking_date"`
    DurationHours int         `json:"duration_hours"`
    TotalCents    int64       `json:"total_cents"`
    Status        null.String `json:"status"`
    AddOns        []string    `json:"add_ons"`
    CreatedAt     time.Time   `json:"created_at"`
}

// StatusOrUnknown returns the status or "unknown" when the column is null
// or holds an unrecognised value.
func (b Booking) StatusOrUnknown() string {
    if !b.Status.Valid {
        return "unknown"
    }
    switch b.Status.String {
    case BookingConfirmed, BookingCancelled, BookingCompleted:
        return b.Status.String
    }
    return "unknown"
}
