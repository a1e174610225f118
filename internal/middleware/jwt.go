package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/model"
)

// Context keys set by JWTAuth.
const (
	userKey   = "user"
	viaKey    = "auth_via"
	ViaBearer = "bearer"
	ViaClient = "client"
)

// Authenticator resolves a raw access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (model.AuthUser, error)
}

// JWTAuth identifies the caller.  A Bearer access token wins; without one
// the signed-in user of the client session (if any) is used.  A present
// but invalid token is rejected with 401.  Anonymous requests pass
// through; wrap routes that need a user with RequireSignedIn.
func JWTAuth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header != "" {
				if !strings.HasPrefix(header, "Bearer ") {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
				}
				raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
				u, err := a.Authenticate(c.Request().Context(), raw)
				if err != nil {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
				}
				setUser(c, u, ViaBearer)
				return next(c)
			}

			if cl := CurrentClient(c); cl != nil {
				if st := cl.Auth.State(); st.User != nil {
					setUser(c, *st.User, ViaClient)
				}
			}
			return next(c)
		}
	}
}

// RequireSignedIn rejects requests without an identified user.
func RequireSignedIn() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := CurrentUser(c); !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not_signed_in"})
			}
			return next(c)
		}
	}
}

func setUser(c echo.Context, u model.AuthUser, via string) {
	c.Set(userKey, u)
	c.Set(viaKey, via)
	c.Set("user_id", u.ID)
}
