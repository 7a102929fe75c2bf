package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/geo"
	"github.com/iliyamo/show-directory/internal/middleware"
	"github.com/iliyamo/show-directory/internal/model"
	"github.com/iliyamo/show-directory/internal/repository"
	"github.com/iliyamo/show-directory/internal/search"
)

// CatalogHandler serves the read side of the directory: search, radius
// search, themed collections, facets and show details.
type CatalogHandler struct {
	Search *search.Service
	Ranker *geo.Ranker
	Shows  repository.ShowStore
	Log    *zap.Logger
}

func NewCatalogHandler(svc *search.Service, ranker *geo.Ranker, shows repository.ShowStore, log *zap.Logger) *CatalogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogHandler{Search: svc, Ranker: ranker, Shows: shows, Log: log}
}

func criteriaFrom(c echo.Context) search.Criteria {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	return search.Criteria{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Location: c.QueryParam("location"),
		FileType: search.ParseFileType(c.QueryParam("type")),
		DateFrom: c.QueryParam("date_from"),
		DateTo:   c.QueryParam("date_to"),
		Sort:     c.QueryParam("sort"),
		Page:     page,
	}
}

// SearchShows lists approved shows matching the query parameters
// q, category, location, type (image|pdf), date_from, date_to, sort and page.
// A storage failure still answers 200 with an empty page and a notice.
func (h *CatalogHandler) SearchShows(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Search.Search(c.Request().Context(), criteriaFrom(c)))
}

// AdminShows is SearchShows for administrators: unapproved shows included,
// approved ones first, 24 per page.
func (h *CatalogHandler) AdminShows(c echo.Context) error {
	crit := criteriaFrom(c)
	crit.Admin = true
	return c.JSON(http.StatusOK, h.Search.Search(c.Request().Context(), crit))
}

// Nearby ranks approved shows by distance from lat/lng or a geocoded
// address.  When no center resolves the candidates come back unranked with
// a null distance.
func (h *CatalogHandler) Nearby(c echo.Context) error {
	res, err := h.Ranker.Rank(c.Request().Context(), geo.NearbyQuery{
		Lat:     c.QueryParam("lat"),
		Lng:     c.QueryParam("lng"),
		Address: c.QueryParam("address"),
		Radius:  c.QueryParam("radius"),
		Query:   c.QueryParam("q"),
	})
	if err != nil {
		h.Log.Error("nearby: candidate listing failed", zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"items":     []geo.NearbyItem{},
			"radius_km": res.RadiusKm,
			"ranked":    false,
			"notice":    search.FailedNotice,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     res.Items,
		"center":    res.Center,
		"radius_km": res.RadiusKm,
		"ranked":    res.Ranked(),
	})
}

// Collections lists the themed collections.
func (h *CatalogHandler) Collections(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"collections": search.Collections()})
}

// Collection lists one themed collection, 404 for an unknown slug.
func (h *CatalogHandler) Collection(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	res, err := h.Search.Collection(c.Request().Context(), c.Param("slug"), page)
	if errors.Is(err, search.ErrUnknownCollection) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "collection not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "collection failed"})
	}
	return c.JSON(http.StatusOK, res)
}

// Facets returns the distinct categories and locations of approved shows.
func (h *CatalogHandler) Facets(c echo.Context) error {
	f, err := h.Shows.Facets(c.Request().Context())
	if err != nil {
		h.Log.Error("facets: query failed", zap.Error(err))
		return c.JSON(http.StatusOK, repository.Facets{Categories: []string{}, Locations: []string{}})
	}
	return c.JSON(http.StatusOK, f)
}

// GetShow returns one show.  Unapproved shows are only visible to their
// owner and to administrators.
func (h *CatalogHandler) GetShow(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	s, err := h.Shows.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrShowNotFound) || (err == nil && !canSee(c, s)) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	}
	if err != nil {
		h.Log.Error("get show failed", zap.Uint64("show_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, s)
}

func canSee(c echo.Context, s model.Show) bool {
	if s.Approved || middleware.IsAdmin(c) {
		return true
	}
	uid, ok := middleware.UserID(c)
	return ok && s.OwnerID != nil && *s.OwnerID == uid
}

func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
