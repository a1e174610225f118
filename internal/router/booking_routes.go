package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/handler"
)

// RegisterBookingSession registers the booking flow of the caller's
// client.  Browsing needs no sign-in; confirming checks it in the handler.
func RegisterBookingSession(e *echo.Echo, id Identity, h *handler.BookingSessionHandler) {
	g := e.Group("/v1/booking-session", id.chain()...)
	g.GET("", h.Get)
	g.DELETE("", h.Reset)
	g.PUT("/search", h.Search)
	g.POST("/location", h.ChooseLocation)
	g.PATCH("/selection", h.UpdateSelection)
	g.POST("/addons/:addon", h.ToggleAddOn)
	g.POST("/slot", h.SelectSlot)
	g.POST("/confirmation", h.OpenConfirmation)
	g.DELETE("/confirmation", h.CloseConfirmation)
	g.POST("/confirm", h.Confirm)
}
