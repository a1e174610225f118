package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/booking"
	"github.com/iliyamo/spot-saver/internal/catalog"
	"github.com/iliyamo/spot-saver/internal/middleware"
)

// LocationHandler serves the parking catalog.  Responses carry no
// per-client data so they can be cached.
type LocationHandler struct {
	Catalog *catalog.Provider
	Cache   *middleware.ResponseCache
}

func NewLocationHandler(p *catalog.Provider, rc *middleware.ResponseCache) *LocationHandler {
	return &LocationHandler{Catalog: p, Cache: rc}
}

type locationQuery struct {
	Query          string `query:"q"`
	SecureOnly     bool   `query:"secure"`
	CoveredOnly    bool   `query:"covered"`
	EVOnly         bool   `query:"ev"`
	MaxHourlyCents int64  `query:"max_price_cents"`
}

// List: GET /v1/locations?q=&secure=&covered=&ev=&max_price_cents=
func (h *LocationHandler) List(c echo.Context) error {
	var q locationQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	locs, err := h.Catalog.ListLocations(ctx)
	if err != nil {
		return catalogFailure(c, err)
	}
	f := booking.Filters{SecureOnly: q.SecureOnly, CoveredOnly: q.CoveredOnly, EVOnly: q.EVOnly, MaxHourlyCents: q.MaxHourlyCents}
	out := booking.ApplyFilters(locs, f, q.Query)
	return c.JSON(http.StatusOK, echo.Map{"locations": out, "total": len(out)})
}

// Get: GET /v1/locations/:id
func (h *LocationHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	loc, err := h.Catalog.Get(ctx, c.Param("id"))
	if err != nil {
		return catalogFailure(c, err)
	}
	return c.JSON(http.StatusOK, loc)
}

// Reload: POST /v1/locations/reload.  The previous catalog stays in place
// when the reload fails.
func (h *LocationHandler) Reload(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	locs, err := h.Catalog.Reload(ctx)
	if err != nil {
		return catalogFailure(c, err)
	}
	if err := h.Cache.Invalidate(ctx); err != nil {
		c.Logger().Warnf("invalidate catalog cache: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"locations": locs, "total": len(locs)})
}

func catalogFailure(c echo.Context, err error) error {
	var ce *catalog.CatalogError
	switch {
	case errors.Is(err, catalog.ErrLocationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "location not found"})
	case errors.Is(err, catalog.ErrAbandoned):
		return c.JSON(http.StatusRequestTimeout, echo.Map{"error": "request abandoned"})
	case errors.As(err, &ce):
		c.Logger().Errorf("catalog: %v", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "could not load parking locations"})
	}
	c.Logger().Errorf("catalog: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
