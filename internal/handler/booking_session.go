package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/app"
	"github.com/iliyamo/spot-saver/internal/auth"
	"github.com/iliyamo/spot-saver/internal/booking"
	"github.com/iliyamo/spot-saver/internal/catalog"
	"github.com/iliyamo/spot-saver/internal/middleware"
	"github.com/iliyamo/spot-saver/internal/model"
	"github.com/iliyamo/spot-saver/internal/queue"
	"github.com/iliyamo/spot-saver/internal/repository"
	"github.com/iliyamo/spot-saver/internal/service"
	"github.com/iliyamo/spot-saver/internal/store"
)

// Pages the booking flow navigates between.
const (
	SearchPath  = "/find-slot"
	DetailsPath = "/booking/"
)

// BookingSessionHandler exposes the booking flow of the caller's client.
// Every mutation runs under the client's booking lock and is written back
// to the session store.
type BookingSessionHandler struct {
	Sessions      booking.Store
	Catalog       *catalog.Provider
	Publisher     service.Publisher
	RedirectDelay time.Duration
	Now           func() time.Time

	// after schedules the post-booking redirect; tests replace it.
	after func(d time.Duration, fn func())
}

func NewBookingSessionHandler(st booking.Store, p *catalog.Provider, pub service.Publisher, delay time.Duration) *BookingSessionHandler {
	if pub == nil {
		pub = service.NopPublisher{}
	}
	return &BookingSessionHandler{
		Sessions:      st,
		Catalog:       p,
		Publisher:     pub,
		RedirectDelay: delay,
		Now:           func() time.Time { return time.Now().UTC() },
		after:         func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

type searchReq struct {
	Query    *string          `json:"query"`
	Filters  *booking.Filters `json:"filters"`
	Date     *string          `json:"date"`
	Duration *int             `json:"duration_hours"`
}

type locationReq struct {
	LocationID string `json:"location_id"`
}

type selectionReq struct {
	Date     *string `json:"date"`
	Duration *int    `json:"duration_hours"`
}

type slotReq struct {
	SlotID string `json:"slot_id"`
}

// op is a session mutation.  It may add fields to the response body.
type op func(ctx context.Context, cl *app.Client, s *booking.Session, body echo.Map) error

// mutate loads the session, applies fn and saves the result, even when fn
// failed, since a failed confirmation still changes the session.
func (h *BookingSessionHandler) mutate(c echo.Context, status int, fn op) error {
	return h.mutateThen(c, status, fn, nil)
}

// mutateThen is mutate with a follow-up that runs only when fn succeeded
// and the session was saved.
func (h *BookingSessionHandler) mutateThen(c echo.Context, status int, fn op, then func(cl *app.Client)) error {
	cl := middleware.CurrentClient(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	body := echo.Map{}
	var s *booking.Session
	var opErr error
	err := cl.WithBookingLock(func() error {
		var err error
		s, err = booking.Load(ctx, h.Sessions, cl.ID, h.Now())
		if err != nil {
			return err
		}
		if s.RedirectDue(h.Now()) {
			s.Reset(h.Now())
		}
		opErr = fn(ctx, cl, s, body)
		return h.Sessions.Save(ctx, cl.ID, s)
	})
	if err != nil {
		c.Logger().Errorf("booking session %s: %v", cl.ID, err)
		return fail(c, http.StatusServiceUnavailable, "booking session unavailable")
	}
	if opErr != nil {
		return h.failure(c, s, opErr)
	}
	if then != nil {
		then(cl)
	}
	if err := h.describe(ctx, s, body); err != nil {
		return catalogFailure(c, err)
	}
	return respond(c, status, body)
}

// describe adds the session view to body.  While browsing it includes the
// locations matching the search.
func (h *BookingSessionHandler) describe(ctx context.Context, s *booking.Session, body echo.Map) error {
	body["session"] = s
	body["can_confirm"] = s.CanConfirm()
	if sum, err := s.Summary(); err == nil {
		body["summary"] = sum
	}
	if s.State == booking.StateBrowsing {
		locs, err := h.Catalog.ListLocations(ctx)
		if err != nil {
			return err
		}
		body["locations"] = s.Visible(locs)
	}
	return nil
}

func (h *BookingSessionHandler) failure(c echo.Context, s *booking.Session, err error) error {
	body := echo.Map{"error": err.Error(), "session": s}
	var ce *booking.ConfirmError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &ce):
		status = http.StatusBadGateway
		switch {
		case errors.Is(err, repository.ErrSlotUnavailable):
			status = http.StatusConflict
		case errors.Is(err, store.ErrNotSignedIn):
			status = http.StatusUnauthorized
		}
		body["error"] = ce.Err.Error()
	case errors.Is(err, booking.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, booking.ErrNoSlotSelected),
		errors.Is(err, booking.ErrUnknownAddOn),
		errors.Is(err, booking.ErrInvalidDate):
		status = http.StatusBadRequest
	case errors.Is(err, booking.ErrSlotNotFound), errors.Is(err, catalog.ErrLocationNotFound):
		status = http.StatusNotFound
	default:
		var cat *catalog.CatalogError
		if errors.As(err, &cat) || errors.Is(err, catalog.ErrAbandoned) {
			return catalogFailure(c, err)
		}
		c.Logger().Errorf("booking session: %v", err)
	}
	return respond(c, status, body)
}

// Get: GET /v1/booking-session
func (h *BookingSessionHandler) Get(c echo.Context) error {
	return h.mutate(c, http.StatusOK, func(context.Context, *app.Client, *booking.Session, echo.Map) error {
		return nil
	})
}

// Search: PUT /v1/booking-session/search
func (h *BookingSessionHandler) Search(c echo.Context) error {
	var req searchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	return h.mutate(c, http.StatusOK, func(_ context.Context, _ *app.Client, s *booking.Session, _ echo.Map) error {
		if req.Filters != nil {
			if err := s.SetFilters(*req.Filters); err != nil {
				return err
			}
		}
		if req.Query != nil {
			if err := s.SetQuery(*req.Query); err != nil {
				return err
			}
		}
		if req.Date != nil {
			if err := s.SetSearchDate(*req.Date); err != nil {
				return err
			}
		}
		if req.Duration != nil {
			if _, err := s.SetSearchDuration(*req.Duration); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChooseLocation: POST /v1/booking-session/location.  An unknown id sends
// the client back to the search page.
func (h *BookingSessionHandler) ChooseLocation(c echo.Context) error {
	var req locationReq
	if err := c.Bind(&req); err != nil || req.LocationID == "" {
		return fail(c, http.StatusBadRequest, "location_id required")
	}
	return h.mutate(c, http.StatusOK, func(ctx context.Context, cl *app.Client, s *booking.Session, _ echo.Map) error {
		loc, err := h.Catalog.Get(ctx, req.LocationID)
		if err != nil {
			if errors.Is(err, catalog.ErrLocationNotFound) {
				cl.Outbox.NavigateTo(SearchPath, nil)
			}
			return err
		}
		if err := s.ChooseLocation(loc); err != nil {
			return err
		}
		cl.Outbox.NavigateTo(DetailsPath+loc.ID, map[string]any{
			"date":           s.Selection.Date,
			"duration_hours": s.Selection.DurationHours,
		})
		return nil
	})
}

// UpdateSelection: PATCH /v1/booking-session/selection
func (h *BookingSessionHandler) UpdateSelection(c echo.Context) error {
	var req selectionReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	return h.mutate(c, http.StatusOK, func(_ context.Context, _ *app.Client, s *booking.Session, _ echo.Map) error {
		if req.Date != nil {
			if err := s.SetDate(*req.Date); err != nil {
				return err
			}
		}
		if req.Duration != nil {
			if _, err := s.SetDuration(*req.Duration); err != nil {
				return err
			}
		}
		return nil
	})
}

// ToggleAddOn: POST /v1/booking-session/addons/:addon
func (h *BookingSessionHandler) ToggleAddOn(c echo.Context) error {
	a := booking.AddOn(c.Param("addon"))
	return h.mutate(c, http.StatusOK, func(_ context.Context, _ *app.Client, s *booking.Session, body echo.Map) error {
		on, err := s.ToggleAddOn(a)
		if err != nil {
			return err
		}
		body["active"] = on
		return nil
	})
}

// SelectSlot: POST /v1/booking-session/slot.  Choosing an occupied slot
// leaves the session unchanged and reports selected=false.
func (h *BookingSessionHandler) SelectSlot(c echo.Context) error {
	var req slotReq
	if err := c.Bind(&req); err != nil || req.SlotID == "" {
		return fail(c, http.StatusBadRequest, "slot_id required")
	}
	return h.mutate(c, http.StatusOK, func(_ context.Context, _ *app.Client, s *booking.Session, body echo.Map) error {
		ok, err := s.SelectSlot(req.SlotID)
		if err != nil {
			return err
		}
		body["selected"] = ok
		return nil
	})
}

// OpenConfirmation: POST /v1/booking-session/confirmation
func (h *BookingSessionHandler) OpenConfirmation(c echo.Context) error {
	return h.mutate(c, http.StatusOK, func(_ context.Context, _ *app.Client, s *booking.Session, _ echo.Map) error {
		_, err := s.OpenConfirmation()
		return err
	})
}

// CloseConfirmation: DELETE /v1/booking-session/confirmation
func (h *BookingSessionHandler) CloseConfirmation(c echo.Context) error {
	return h.mutate(c, http.StatusOK, func(_ context.Context, _ *app.Client, s *booking.Session, _ echo.Map) error {
		return s.CloseConfirmation()
	})
}

// Confirm: POST /v1/booking-session/confirm.  The booking is written
// through the client's store session, so a client-session sign-in is
// required.  Once the completed session is saved a booking.confirmed event
// is published and the client is sent to the history page after the
// redirect delay.  The write is keyed by the selection's booking id, so a
// retry after a failed save returns the same booking.
func (h *BookingSessionHandler) Confirm(c echo.Context) error {
	cl := middleware.CurrentClient(c)
	st := cl.Auth.State()
	if !st.SignedIn() {
		return fail(c, http.StatusUnauthorized, "not_signed_in")
	}
	userID := st.User.ID

	var (
		created model.Booking
		now     time.Time
	)
	confirm := func(ctx context.Context, cl *app.Client, s *booking.Session, body echo.Map) error {
		now = h.Now()
		b, err := s.Confirm(ctx, cl.Store, userID, now, h.RedirectDelay)
		if err != nil {
			var ce *booking.ConfirmError
			if errors.As(err, &ce) {
				cl.Outbox.Notify(auth.KindError, "Booking Failed", ce.Err.Error())
			}
			return err
		}
		created = b
		body["booking"] = b
		return nil
	}
	return h.mutateThen(c, http.StatusCreated, confirm, func(cl *app.Client) {
		cl.Outbox.Notify(auth.KindSuccess, "Booking Confirmed!", "Your parking spot has been reserved.")
		h.after(h.RedirectDelay, func() { cl.Outbox.NavigateTo(booking.HistoryPath, nil) })
		go h.publish(queue.NewBookingConfirmed(created, now))
	})
}

func (h *BookingSessionHandler) publish(ev queue.BookingConfirmedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := h.Publisher.PublishBookingConfirmed(ctx, ev); err != nil {
		log.Printf("publish booking %s: %v", ev.BookingID, err)
	}
}

// Reset: DELETE /v1/booking-session
func (h *BookingSessionHandler) Reset(c echo.Context) error {
	return h.mutate(c, http.StatusOK, func(_ context.Context, _ *app.Client, s *booking.Session, _ echo.Map) error {
		s.Reset(h.Now())
		return nil
	})
}
