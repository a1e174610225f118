package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/history"
	"github.com/iliyamo/spot-saver/internal/middleware"
)

// BookingHandler serves the signed-in user's booking history.
type BookingHandler struct {
	// Bookings answers bearer callers; client-session callers read through
	// their own store session.
	Bookings history.Lister
}

func NewBookingHandler(l history.Lister) *BookingHandler {
	return &BookingHandler{Bookings: l}
}

// lister picks the read path matching how the caller signed in.
func lister(c echo.Context, fallback history.Lister) history.Lister {
	if middleware.AuthVia(c) == middleware.ViaClient {
		if cl := middleware.CurrentClient(c); cl != nil {
			return cl.Store
		}
	}
	return fallback
}

// List: GET /v1/bookings?q=&status=
func (h *BookingHandler) List(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	var f history.Filter
	if err := c.Bind(&f); err != nil {
		return fail(c, http.StatusBadRequest, "invalid query")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := history.NewView(lister(c, h.Bookings)).Load(ctx, u.ID, f)
	if err != nil {
		return historyFailure(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{
		"items":  res.Items,
		"total":  res.Total,
		"empty":  res.Empty,
		"filter": f,
	})
}

func historyFailure(c echo.Context, err error) error {
	if errors.Is(err, history.ErrAbandoned) {
		return fail(c, http.StatusRequestTimeout, "request abandoned")
	}
	c.Logger().Errorf("history: %v", err)
	return fail(c, http.StatusBadGateway, "could not load your bookings")
}
