// Package history lists a user's bookings with filtering and statistics.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/spot-saver/internal/model"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// StatusUnknown matches bookings whose status is missing or unrecognised.
const StatusUnknown = "unknown"

// EmptyKind tells why a result has no items.
type EmptyKind string

const (
	NotEmpty   EmptyKind = ""
	NoBookings EmptyKind = "no_bookings"
	NoMatches  EmptyKind = "no_matches"
)

// ErrAbandoned is returned when the caller went away before the rows
// arrived.  The rows are dropped.
var ErrAbandoned = errors.New("history load abandoned")

// BookingHistoryError wraps a failed booking read.
type BookingHistoryError struct {
	Err error
}

func (e *BookingHistoryError) Error() string {
	return fmt.Sprintf("could not load bookings: %v", e.Err)
}

func (e *BookingHistoryError) Unwrap() error { return e.Err }

// Lister reads a user's bookings.
type Lister interface {
	ListBookings(ctx context.Context, userID string) ([]model.Booking, error)
}

// Filter narrows the list.  Query matches the location name or the slot
// number, case-insensitively; Status must equal the booking status.
type Filter struct {
	Query  string `query:"q" json:"q"`
	Status string `query:"status" json:"status"`
}

// Match reports whether b passes f.
func (f Filter) Match(b model.Booking) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(b.LocationName), q) &&
			!strings.Contains(strings.ToLower(b.SlotNumber), q) {
			return false
		}
	}
	if st := strings.ToLower(strings.TrimSpace(f.Status)); st != "" && st != StatusAll {
		if b.StatusOrUnknown() != st {
			return false
		}
	}
	return true
}

// Result is one rendering of the history page.
type Result struct {
	Items []model.Booking `json:"items"`
	Total int             `json:"total"`
	Empty EmptyKind       `json:"empty,omitempty"`
}

// View loads bookings through a Lister.
type View struct {
	src Lister
}

// NewView returns a View reading from src.
func NewView(src Lister) *View { return &View{src: src} }

// Load returns userID's bookings, newest date first, filtered by f.
func (v *View) Load(ctx context.Context, userID string, f Filter) (Result, error) {
	rows, err := v.src.ListBookings(ctx, userID)
	if errors.Is(ctx.Err(), context.Canceled) {
		return Result{}, ErrAbandoned
	}
	if err != nil {
		return Result{}, &BookingHistoryError{Err: err}
	}
	Sort(rows)
	return Apply(rows, f), nil
}

// Sort orders bookings by date descending, then by creation time descending.
func Sort(rows []model.Booking) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].BookingDate != rows[j].BookingDate {
			return rows[i].BookingDate > rows[j].BookingDate
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

// Apply filters rows, keeping their order, and classifies an empty result.
func Apply(rows []model.Booking, f Filter) Result {
	items := make([]model.Booking, 0, len(rows))
	for _, b := range rows {
		if f.Match(b) {
			items = append(items, b)
		}
	}
	res := Result{Items: items, Total: len(rows)}
	switch {
	case len(rows) == 0:
		res.Empty = NoBookings
	case len(items) == 0:
		res.Empty = NoMatches
	}
	return res
}
