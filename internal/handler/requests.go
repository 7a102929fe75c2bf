package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/geo"
	"github.com/iliyamo/show-directory/internal/middleware"
	"github.com/iliyamo/show-directory/internal/model"
	"github.com/iliyamo/show-directory/internal/notify"
	"github.com/iliyamo/show-directory/internal/repository"
)

const requestPageSize = 20

// RequestHandler serves animation requests: public intake, the
// administrator listing and the company notification.
type RequestHandler struct {
	Requests   repository.RequestStore
	Matcher    *notify.Matcher
	Dispatcher *notify.Dispatcher
	Alerts     *notify.Alerter // optional
	Log        *zap.Logger
}

func NewRequestHandler(requests repository.RequestStore, matcher *notify.Matcher, dispatcher *notify.Dispatcher, log *zap.Logger) *RequestHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RequestHandler{Requests: requests, Matcher: matcher, Dispatcher: dispatcher, Log: log}
}

type submitRequestReq struct {
	Title          string `json:"title" validate:"max=255"`
	Organisation   string `json:"organisation" validate:"required,max=255"`
	ContactName    string `json:"contact_name" validate:"required,max=255"`
	Phone          string `json:"phone" validate:"required,max=50"`
	ContactEmail   string `json:"contact_email" validate:"required,email,max=255"`
	City           string `json:"city" validate:"required,max=255"`
	PostalCode     string `json:"postal_code" validate:"omitempty,max=10"`
	Region         string `json:"region" validate:"max=120"`
	Dates          string `json:"dates" validate:"required,max=500"`
	VenueType      string `json:"venue_type" validate:"required,max=120"`
	WantedCategory string `json:"wanted_category" validate:"required,max=255"`
	AgeRange       string `json:"age_range" validate:"required,max=80"`
	Audience       string `json:"audience" validate:"required,max=80"`
	Budget         string `json:"budget" validate:"required,max=80"`
	Constraints    string `json:"constraints" validate:"max=5000"`
	Accessibility  string `json:"accessibility" validate:"max=5000"`
}

func (req submitRequestReq) request() model.AnimationRequest {
	a := model.AnimationRequest{
		Title:          strings.TrimSpace(req.Title),
		Organisation:   strings.TrimSpace(req.Organisation),
		ContactName:    strings.TrimSpace(req.ContactName),
		Phone:          strings.TrimSpace(req.Phone),
		ContactEmail:   strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		City:           strings.TrimSpace(req.City),
		PostalCode:     strings.TrimSpace(req.PostalCode),
		Region:         strings.TrimSpace(req.Region),
		Dates:          strings.TrimSpace(req.Dates),
		VenueType:      strings.TrimSpace(req.VenueType),
		WantedCategory: strings.TrimSpace(req.WantedCategory),
		AgeRange:       strings.TrimSpace(req.AgeRange),
		Audience:       strings.TrimSpace(req.Audience),
		Budget:         strings.TrimSpace(req.Budget),
		Constraints:    strings.TrimSpace(req.Constraints),
		Accessibility:  strings.TrimSpace(req.Accessibility),
	}
	if a.Region == "" && a.PostalCode != "" {
		a.Region = geo.RegionForPostalCode(a.PostalCode)
	}
	return a
}

// Submit records a visitor's animation request.  Without an explicit
// region, the region is deduced from the postal code.
func (h *RequestHandler) Submit(c echo.Context) error {
	var req submitRequestReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	a := req.request()
	ctx := c.Request().Context()
	if err := h.Requests.Create(ctx, &a); err != nil {
		h.Log.Error("submit request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create request failed"})
	}
	h.Log.Info("animation request submitted", zap.Uint64("request_id", a.ID), zap.String("region", a.Region))
	subject, body := notify.RequestAlert(a)
	h.Alerts.Alert(ctx, subject, body)
	return c.JSON(http.StatusCreated, echo.Map{"id": a.ID, "region": a.Region})
}

// Update lets an administrator correct a request.  Every submitted field
// is replaced; the privacy flag is left alone.
func (h *RequestHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req submitRequestReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	a := req.request()
	a.ID = id
	err = h.Requests.Update(c.Request().Context(), &a)
	if errors.Is(err, repository.ErrRequestNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	}
	if err != nil {
		h.Log.Error("update request failed", zap.Uint64("request_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, a)
}

// List pages through requests, newest first.  Private requests are only
// listed for administrators.
func (h *RequestHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	items, total, err := h.Requests.List(c.Request().Context(), middleware.IsAdmin(c), page, requestPageSize)
	if err != nil {
		h.Log.Error("list requests failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if items == nil {
		items = []model.AnimationRequest{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": requestPageSize,
	})
}

// Get returns one request; private ones answer 404 to non administrators.
func (h *RequestHandler) Get(c echo.Context) error {
	a, status, err := h.load(c)
	if err != nil {
		return c.JSON(status, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, a)
}

type privacyReq struct {
	IsPrivate *bool `json:"is_private" validate:"required"`
}

// SetPrivacy hides or shows a request in the public listing.
func (h *RequestHandler) SetPrivacy(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req privacyReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	err = h.Requests.SetPrivate(c.Request().Context(), id, *req.IsPrivate)
	if errors.Is(err, repository.ErrRequestNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	}
	if err != nil {
		h.Log.Error("set privacy failed", zap.Uint64("request_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_private": *req.IsPrivate})
}

type matchReq struct {
	Categories []string `json:"categories"`
	Regions    []string `json:"regions"`
}

// Recipients previews who would be notified for the chosen categories
// and regions.  Nothing is sent.
func (h *RequestHandler) Recipients(c echo.Context) error {
	plan, status, err := h.plan(c)
	if err != nil {
		return c.JSON(status, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, plan)
}

// Notify matches the request against the directory and emails every
// recipient.  An unavailable mail transport answers 503 and nothing is
// sent; individual send failures only show up in the report.
func (h *RequestHandler) Notify(c echo.Context) error {
	plan, status, err := h.plan(c)
	if err != nil {
		return c.JSON(status, echo.Map{"error": err.Error()})
	}
	rep, err := h.Dispatcher.Dispatch(c.Request().Context(), plan.Request.ID, plan)
	if errors.Is(err, notify.ErrTransportUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "mail transport unavailable"})
	}
	if err != nil {
		h.Log.Error("dispatch failed", zap.Uint64("request_id", plan.Request.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dispatch failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"report": rep, "recipients": plan.Emails()})
}

func (h *RequestHandler) plan(c echo.Context) (notify.Plan, int, error) {
	var req matchReq
	if err := c.Bind(&req); err != nil {
		return notify.Plan{}, http.StatusBadRequest, errors.New("invalid body")
	}
	a, status, err := h.load(c)
	if err != nil {
		return notify.Plan{}, status, err
	}
	plan, err := h.Matcher.Match(c.Request().Context(), notify.Target{
		Request:    a,
		Categories: req.Categories,
		Regions:    req.Regions,
	})
	switch {
	case errors.Is(err, notify.ErrNoCategories):
		return notify.Plan{}, http.StatusBadRequest, errors.New("at least one category is required")
	case err != nil:
		h.Log.Error("match recipients failed", zap.Uint64("request_id", a.ID), zap.Error(err))
		return notify.Plan{}, http.StatusInternalServerError, errors.New("matching failed")
	}
	return plan, http.StatusOK, nil
}

func (h *RequestHandler) load(c echo.Context) (model.AnimationRequest, int, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return model.AnimationRequest{}, http.StatusBadRequest, err
	}
	a, err := h.Requests.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrRequestNotFound) || (err == nil && a.IsPrivate && !middleware.IsAdmin(c)) {
		return model.AnimationRequest{}, http.StatusNotFound, errors.New("request not found")
	}
	if err != nil {
		h.Log.Error("load request failed", zap.Uint64("request_id", id), zap.Error(err))
		return model.AnimationRequest{}, http.StatusInternalServerError, errors.New("query failed")
	}
	return a, http.StatusOK, nil
}
