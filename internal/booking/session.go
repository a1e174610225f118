// Package booking holds the booking-session state machine: search filters,
// location and slot selection, add-ons, pricing and confirmation.
//
// A Session is owned by exactly one client's booking flow.  All methods are
// synchronous and only Confirm performs I/O, through the Creator it is given.
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/spot-saver/internal/model"
)

// State is a step of the booking flow.
type State string

const (
	StateBrowsing       State = "browsing"
	StateLocationChosen State = "location_chosen"
	StateSlotSelecting  State = "slot_selecting"
	StateReadyToConfirm State = "ready_to_confirm"
	StateConfirming     State = "confirming"
	StateCompleted      State = "completed"
)

// DateLayout is the wire and storage format of booking dates.
const DateLayout = "2006-01-02"

// DefaultDurationHours is the duration a new search starts with.
const DefaultDurationHours = 2

// HistoryPath is where the client is sent after a completed booking.
const HistoryPath = "/my-bookings"

// Creator persists a confirmed booking and returns the stored row.
type Creator interface {
	CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error)
}

// Selection is the in-progress choice carried from the search screen to
// the details screen.
type Selection struct {
	// BookingID is fixed when the location is chosen so that repeating a
	// confirmation never writes a second booking.
	BookingID       string         `json:"booking_id"`
	LocationID      string         `json:"location_id"`
	LocationName    string         `json:"location_name"`
	HourlyRateCents int64          `json:"hourly_rate_cents"`
	Date            string         `json:"date"`
	DurationHours   int            `json:"duration_hours"`
	SlotID          string         `json:"slot_id,omitempty"`
	SlotNumber      string         `json:"slot_number,omitempty"`
	AddOns          map[AddOn]bool `json:"add_ons"`
	TotalCents      int64          `json:"total_cents"`
}

// BaseCents is the price before add-ons.
func (s *Selection) BaseCents() int64 { return s.HourlyRateCents * int64(s.DurationHours) }

func (s *Selection) recompute() {
	s.TotalCents = Quote(s.HourlyRateCents, s.DurationHours, s.AddOns)
}

// Summary is what the confirmation dialog shows.
type Summary struct {
	LocationName  string `json:"location_name"`
	Date          string `json:"date"`
	DurationHours int    `json:"duration_hours"`
	SlotNumber    string `json:"slot_number"`
	TotalCents    int64  `json:"total_cents"`
}

// Redirect is the navigation scheduled after completion.
type Redirect struct {
	Path  string        `json:"path"`
	After time.Duration `json:"after"`
	At    time.Time     `json:"at"`
}

// Session is the state of one client's booking flow.
type Session struct {
	State          State           `json:"state"`
	Filters        Filters         `json:"filters"`
	Query          string          `json:"query"`
	SearchDate     string          `json:"search_date"`
	SearchDuration int             `json:"search_duration"`
	Location       *model.Location `json:"location,omitempty"`
	Selection      *Selection      `json:"selection,omitempty"`
	ConfirmOpen    bool            `json:"confirm_open"`
	Booking        *model.Booking  `json:"booking,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
	Redirect       *Redirect       `json:"redirect,omitempty"`
}

// NewSession starts a search dated today with the default duration.
func NewSession(now time.Time) *Session {
	return &Session{
		State:          StateBrowsing,
		SearchDate:     now.Format(DateLayout),
		SearchDuration: DefaultDurationHours,
	}
}

// Reset discards everything, as when the user navigates away.
func (s *Session) Reset(now time.Time) {
	*s = *NewSession(now)
}

func (s *Session) in(states ...State) bool {
	for _, st := range states {
		if s.State == st {
			return true
		}
	}
	return false
}

// selecting reports whether the details screen is active.
func (s *Session) selecting() bool {
	return s.in(StateSlotSelecting, StateReadyToConfirm) && s.Selection != nil && s.Location != nil
}

// Visible applies the session's filters and query to the catalog.
func (s *Session) Visible(locs []model.Location) []model.Location {
	return ApplyFilters(locs, s.Filters, s.Query)
}

// SetFilters replaces the search filters.
func (s *Session) SetFilters(f Filters) error {
	if s.State != StateBrowsing {
		return ErrInvalidTransition
	}
	s.Filters = f.Normalize()
	return nil
}

// SetQuery replaces the free-text search.
func (s *Session) SetQuery(q string) error {
	if s.State != StateBrowsing {
		return ErrInvalidTransition
	}
	s.Query = q
	return nil
}

// SetSearchDate sets the date carried into the details screen.
func (s *Session) SetSearchDate(d string) error {
	if s.State != StateBrowsing {
		return ErrInvalidTransition
	}
	if _, err := time.Parse(DateLayout, d); err != nil {
		return ErrInvalidDate
	}
	s.SearchDate = d
	return nil
}

// SetSearchDuration sets the duration carried into the details screen,
// clamped to [1,24], and returns the stored value.
func (s *Session) SetSearchDuration(h int) (int, error) {
	if s.State != StateBrowsing {
		return s.SearchDuration, ErrInvalidTransition
	}
	s.SearchDuration = ClampDuration(h)
	return s.SearchDuration, nil
}

// ChooseLocation opens the details screen for loc.  Slot and add-ons are
// reset; date and duration come from the search screen, or from the
// current selection when switching locations.
func (s *Session) ChooseLocation(loc model.Location) error {
	if !s.in(StateBrowsing, StateSlotSelecting, StateReadyToConfirm) {
		return ErrInvalidTransition
	}
	date, hours := s.SearchDate, s.SearchDuration
	if s.Selection != nil {
		date, hours = s.Selection.Date, s.Selection.DurationHours
	}
	s.State = StateLocationChosen
	l := loc
	s.Location = &l
	s.Selection = &Selection{
		BookingID:       uuid.NewString(),
		LocationID:      loc.ID,
		LocationName:    loc.Name,
		HourlyRateCents: loc.HourlyRateCents,
		Date:            date,
		DurationHours:   ClampDuration(hours),
		AddOns:          map[AddOn]bool{},
	}
	s.Selection.recompute()
	s.ConfirmOpen = false
	s.LastError = ""
	s.State = StateSlotSelecting
	return nil
}

// SetDuration changes the duration, clamped to [1,24], keeping the slot.
func (s *Session) SetDuration(h int) (int, error) {
	if !s.selecting() {
		return 0, ErrInvalidTransition
	}
	s.Selection.DurationHours = ClampDuration(h)
	s.Selection.recompute()
	return s.Selection.DurationHours, nil
}

// SetDate changes the booking date, keeping the slot.
func (s *Session) SetDate(d string) error {
	if !s.selecting() {
		return ErrInvalidTransition
	}
	if _, err := time.Parse(DateLayout, d); err != nil {
		return ErrInvalidDate
	}
	s.Selection.Date = d
	return nil
}

// ToggleAddOn flips a, returning whether it is now active.
func (s *Session) ToggleAddOn(a AddOn) (bool, error) {
	if !s.selecting() {
		return false, ErrInvalidTransition
	}
	if _, ok := surcharges[a]; !ok {
		return false, ErrUnknownAddOn
	}
	if s.Selection.AddOns == nil {
		s.Selection.AddOns = map[AddOn]bool{}
	}
	on := !s.Selection.AddOns[a]
	if on {
		s.Selection.AddOns[a] = true
	} else {
		delete(s.Selection.AddOns, a)
	}
	s.Selection.recompute()
	return on, nil
}

// SelectSlot selects an available slot.  Picking an unavailable slot is a
// no-op and returns false.
func (s *Session) SelectSlot(id string) (bool, error) {
	if !s.selecting() {
		return false, ErrInvalidTransition
	}
	slot, ok := s.Location.Slot(id)
	if !ok {
		return false, ErrSlotNotFound
	}
	if !slot.Available {
		return false, nil
	}
	s.Selection.SlotID = slot.ID
	s.Selection.SlotNumber = slot.Number
	s.State = StateReadyToConfirm
	return true, nil
}

// CanConfirm reports whether the confirm action should be enabled.
func (s *Session) CanConfirm() bool {
	return s.State == StateReadyToConfirm && s.Selection != nil && s.Selection.SlotID != ""
}

// Summary describes the current selection for the confirmation dialog.
func (s *Session) Summary() (Summary, error) {
	if s.Selection == nil || s.Selection.SlotID == "" {
		return Summary{}, ErrNoSlotSelected
	}
	return Summary{
		LocationName:  s.Selection.LocationName,
		Date:          s.Selection.Date,
		DurationHours: s.Selection.DurationHours,
		SlotNumber:    s.Selection.SlotNumber,
		TotalCents:    s.Selection.TotalCents,
	}, nil
}

// OpenConfirmation opens the confirmation dialog.
func (s *Session) OpenConfirmation() (Summary, error) {
	sum, err := s.Summary()
	if err != nil {
		return Summary{}, err
	}
	if s.State != StateReadyToConfirm {
		return Summary{}, ErrInvalidTransition
	}
	s.ConfirmOpen = true
	return sum, nil
}

// CloseConfirmation dismisses the dialog without booking.
func (s *Session) CloseConfirmation() error {
	if s.State != StateReadyToConfirm {
		return ErrInvalidTransition
	}
	s.ConfirmOpen = false
	return nil
}

// Confirm writes the booking through c and waits for the result.  On
// failure the session returns to ready-to-confirm with the dialog open
// and a *ConfirmError is returned.  On success the session is completed
// and a redirect to the history page is scheduled after delay.
func (s *Session) Confirm(ctx context.Context, c Creator, userID string, now time.Time, delay time.Duration) (model.Booking, error) {
	if s.Selection == nil || s.Selection.SlotID == "" {
		return model.Booking{}, ErrNoSlotSelected
	}
	if s.State != StateReadyToConfirm {
		return model.Booking{}, ErrInvalidTransition
	}
	s.State = StateConfirming

	sel := s.Selection
	draft := model.Booking{
		ID:            sel.BookingID,
		UserID:        userID,
		LocationID:    sel.LocationID,
		LocationName:  sel.LocationName,
		SlotID:        sel.SlotID,
		SlotNumber:    sel.SlotNumber,
		BookingDate:   sel.Date,
		DurationHours: sel.DurationHours,
		TotalCents:    sel.TotalCents,
		AddOns:        activeAddOns(sel.AddOns),
	}
	created, err := c.CreateBooking(ctx, draft)
	if err != nil {
		s.State = StateReadyToConfirm
		s.ConfirmOpen = true
		s.LastError = err.Error()
		return model.Booking{}, &ConfirmError{Err: err}
	}

	s.State = StateCompleted
	s.ConfirmOpen = false
	s.LastError = ""
	s.Booking = &created
	s.Redirect = &Redirect{Path: HistoryPath, After: delay, At: now.Add(delay)}
	return created, nil
}

// RedirectDue reports whether the post-completion redirect should happen.
func (s *Session) RedirectDue(now time.Time) bool {
	return s.State == StateCompleted && s.Redirect != nil && !now.Before(s.Redirect.At)
}

func activeAddOns(m map[AddOn]bool) []string {
	out := []string{}
	for _, a := range AddOns() {
		if m[a] {
			out = append(out, string(a))
		}
	}
	return out
}
