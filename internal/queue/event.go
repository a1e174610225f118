// Package queue defines message payloads exchanged over the message broker
// and the consumers that record them.
package queue

import (
    "time"

    "github.com/iliyamo/spot-saver/internal/model"
)

// BookingConfirmedEvent is published when a booking is written.  It
// carries enough for downstream consumers to log, notify or run analytics
// without querying the primary database.
type BookingConfirmedEvent struct {
    BookingID     string   `json:"booking_id"`
    UserID        string   `json:"user_id"`
    LocationID    string   `json:"location_id"`
    LocationName  string   `json:"location_name"`
    SlotID        string   `json:"slot_id"`
    SlotNumber    string   `json:"slot_number"`
    BookingDate   string   `json:"booking_date"`
    DurationHours int      `json:"duration_hours"`
    AddOns        []string `json:"add_ons"`
    TotalCents    int64    `json:"total_cents"`
    ConfirmedAt   string   `json:"confirmed_at"`
}

// NewBookingConfirmed builds the event for b.
func NewBookingConfirmed(b model.Booking, now time.Time) BookingConfirmedEvent {
    addOns := b.AddOns
    if addOns == nil {
        addOns = []string{}
    }
    return BookingConfirmedEvent{
        BookingID:     b.ID,
        UserID:        b.UserID,
        LocationID:    b.LocationID,
        LocationName:  b.LocationName,
        SlotID:        b.SlotID,
        SlotNumber:    b.SlotNumber,
        BookingDate:   b.BookingDate,
        DurationHours: b.DurationHours,
        AddOns:        addOns,
        TotalCents:    b.TotalCents,
        ConfirmedAt:   now.UTC().Format(time.RFC3339),
    }
}
