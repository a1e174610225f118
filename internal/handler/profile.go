package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/auth"
	"github.com/iliyamo/spot-saver/internal/history"
	"github.com/iliyamo/spot-saver/internal/loyalty"
	"github.com/iliyamo/spot-saver/internal/middleware"
	"github.com/iliyamo/spot-saver/internal/model"
	"github.com/iliyamo/spot-saver/internal/store"
)

// ProfileHandler renders the profile page: the profile row, booking
// statistics and loyalty standing.
type ProfileHandler struct {
	Profiles auth.ProfileFetcher
	Bookings history.Lister
	Now      func() time.Time
}

func NewProfileHandler(p auth.ProfileFetcher, l history.Lister) *ProfileHandler {
	return &ProfileHandler{Profiles: p, Bookings: l, Now: func() time.Time { return time.Now().UTC() }}
}

// Get: GET /v1/profile
func (h *ProfileHandler) Get(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	var profile *model.Profile
	p, err := h.Profiles.GetProfile(ctx, u.ID)
	switch {
	case err == nil:
		profile = p
	case errors.Is(err, store.ErrNoRows):
	default:
		c.Logger().Errorf("profile %s: %v", u.ID, err)
		return fail(c, http.StatusBadGateway, "could not fetch profile")
	}

	rows, err := lister(c, h.Bookings).ListBookings(ctx, u.ID)
	if err != nil {
		return historyFailure(c, &history.BookingHistoryError{Err: err})
	}
	return respond(c, http.StatusOK, echo.Map{
		"user":    u,
		"profile": profile,
		"stats":   history.Summarize(rows, h.Now()),
		"loyalty": loyalty.FromBookings(rows),
	})
}
