package middleware

// identity.go holds the accessors for the caller identity set by JWTAuth.
// Rate-limit keys fall back to "guest" for anonymous callers.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/model"
)

// CurrentUser returns the identified user, if any.
func CurrentUser(c echo.Context) (model.AuthUser, bool) {
	u, ok := c.Get(userKey).(model.AuthUser)
	return u, ok
}

// AuthVia reports how the user was identified: ViaBearer, ViaClient or "".
func AuthVia(c echo.Context) string {
	v, _ := c.Get(viaKey).(string)
	return v
}

// userID returns the identified user's id, or "guest".
func userID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok && u.ID != "" {
		return u.ID
	}
	return "guest"
}
