package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/handler"
	"github.com/iliyamo/spot-saver/internal/middleware"
)

// RegisterCatalog registers the location endpoints.  Reads are public and
// cached; a reload needs a signed-in caller and clears the cache.
func RegisterCatalog(e *echo.Echo, id Identity, h *handler.LocationHandler) {
	g := e.Group("/v1/locations")
	g.GET("", h.List, h.Cache.Middleware())
	g.GET("/:id", h.Get, h.Cache.Middleware())
	g.POST("/reload", h.Reload, id.chain(middleware.RequireSignedIn())...)
}
