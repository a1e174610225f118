package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/middleware"
)

// requestTimeout bounds every store and database call made by a handler.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// respond writes body as JSON together with the notices and navigations
// pending for the caller's client.
func respond(c echo.Context, status int, body echo.Map) error {
	if body == nil {
		body = echo.Map{}
	}
	if cl := middleware.CurrentClient(c); cl != nil {
		notices, navs := cl.Outbox.Drain()
		body["notices"] = notices
		body["navigations"] = navs
	}
	return c.JSON(status, body)
}

func fail(c echo.Context, status int, msg string) error {
	return respond(c, status, echo.Map{"error": msg})
}
