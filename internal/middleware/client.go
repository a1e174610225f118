package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/app"
)

const clientKey = "client"

// ClientSession attaches the browser's app.Client to the context.  A new
// client id is issued in the spot_client cookie when the request carries
// none or an unknown one.
func ClientSession(reg *app.Registry, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if ck, err := c.Cookie(app.CookieName); err == nil {
				id = ck.Value
			}
			cl, created, err := reg.Ensure(c.Request().Context(), id)
			if err != nil {
				c.Logger().Warnf("client session: %v", err)
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "too_many_clients"})
			}
			if created || cl.ID != id {
				c.SetCookie(&http.Cookie{
					Name:     app.CookieName,
					Value:    cl.ID,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
					Expires:  time.Now().Add(365 * 24 * time.Hour),
				})
			}
			c.Set(clientKey, cl)
			return next(c)
		}
	}
}

// CurrentClient returns the client attached by ClientSession, or nil.
func CurrentClient(c echo.Context) *app.Client {
	cl, _ := c.Get(clientKey).(*app.Client)
	return cl
}
