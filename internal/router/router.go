package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/app"
	"github.com/iliyamo/spot-saver/internal/handler"
	"github.com/iliyamo/spot-saver/internal/middleware"
)

// Identity is the middleware chain that attaches the browser's client and
// resolves the caller.  Every route except health and the catalog uses it.
// Limiter, when set, bounds how fast one IP can create clients.
type Identity struct {
	Clients      *app.Registry
	Auth         middleware.Authenticator
	Limiter      *middleware.RateLimiter
	SecureCookie bool
}

func (id Identity) chain(extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	m := []echo.MiddlewareFunc{
		id.Limiter.NewClients(id.Clients),
		middleware.ClientSession(id.Clients, id.SecureCookie),
		middleware.JWTAuth(id.Auth),
	}
	return append(m, extra...)
}

// RegisterRoutes registers the unauthenticated health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers sign-in, sign-up and sign-out under /v1/auth and
// the identity endpoint /v1/me.  Sign-in and sign-up go through the rate
// limiter.
func RegisterAuth(e *echo.Echo, id Identity, a *handler.AuthHandler, rl *middleware.RateLimiter) {
	g := e.Group("/v1/auth", id.chain()...)
	g.POST("/sign-in", a.SignIn, rl.Middleware())
	g.POST("/sign-up", a.SignUp, rl.Middleware())
	g.POST("/sign-out", a.SignOut)
	g.GET("/state", a.State)

	e.GET("/v1/me", a.Me, id.chain(middleware.RequireSignedIn())...)
}

// RegisterAccount registers the signed-in user's history and profile.
func RegisterAccount(e *echo.Echo, id Identity, b *handler.BookingHandler, p *handler.ProfileHandler) {
	signedIn := id.chain(middleware.RequireSignedIn())
	e.GET("/v1/bookings", b.List, signedIn...)
	e.GET("/v1/profile", p.Get, signedIn...)
}

// RegisterEvents registers the WebSocket push channel.
func RegisterEvents(e *echo.Echo, id Identity, ev *handler.EventsHandler) {
	e.GET("/v1/events", ev.Stream, id.chain()...)
}
