package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/geo"
	"github.com/iliyamo/show-directory/internal/middleware"
	"github.com/iliyamo/show-directory/internal/model"
	"github.com/iliyamo/show-directory/internal/notify"
	"github.com/iliyamo/show-directory/internal/repository"
)

// allowedMimeTypes are the attachment types a show may carry.
var allowedMimeTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ShowHandler serves the show lifecycle: submission by companies,
// edits, approval, ordering and deletion.
type ShowHandler struct {
	Shows          repository.ShowStore
	Users          repository.UserStore
	Geocoder       geo.Geocoder // optional, fills coordinates from the location
	GeocodeTimeout time.Duration
	Alerts         *notify.Alerter // optional
	Log            *zap.Logger
}

func NewShowHandler(shows repository.ShowStore, users repository.UserStore, geocoder geo.Geocoder, timeout time.Duration, log *zap.Logger) *ShowHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ShowHandler{Shows: shows, Users: users, Geocoder: geocoder, GeocodeTimeout: timeout, Log: log}
}

type submitShowReq struct {
	Title        string   `json:"title" validate:"required,max=255"`
	Description  string   `json:"description" validate:"max=5000"`
	Category     string   `json:"category" validate:"required,max=255"`
	Location     string   `json:"location" validate:"required,max=255"`
	Region       string   `json:"region" validate:"max=120"`
	AgeRange     string   `json:"age_range" validate:"max=80"`
	Date         string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	IsEvent      bool     `json:"is_event"`
	Latitude     *float64 `json:"latitude" validate:"required_with=Longitude"`
	Longitude    *float64 `json:"longitude" validate:"required_with=Latitude"`
	ContactEmail string   `json:"contact_email" validate:"omitempty,email,max=255"`
	ContactPhone string   `json:"contact_phone" validate:"max=50"`
	Website      string   `json:"website" validate:"omitempty,url,max=255"`
	FileName     string   `json:"file_name" validate:"max=255"`
	FileMimeType string   `json:"file_mimetype" validate:"required_with=FileName,max=100"`
}

// check rejects attachment types and coordinates the directory cannot
// store.  It writes the 400 itself.
func (req submitShowReq) check(c echo.Context) (bool, error) {
	if req.FileMimeType != "" && !allowedMimeTypes[strings.ToLower(req.FileMimeType)] {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "file type not allowed (png/jpg/gif/webp/pdf)"})
	}
	if req.Latitude != nil && !geo.ValidCoordinates(*req.Latitude, *req.Longitude) {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coordinates"})
	}
	return true, nil
}

func (req submitShowReq) show() model.Show {
	s := model.Show{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		Category:     strings.TrimSpace(req.Category),
		Location:     strings.TrimSpace(req.Location),
		Region:       strings.TrimSpace(req.Region),
		AgeRange:     strings.TrimSpace(req.AgeRange),
		IsEvent:      req.IsEvent,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Website:      strings.TrimSpace(req.Website),
		FileName:     strings.TrimSpace(req.FileName),
		FileMimeType: strings.ToLower(strings.TrimSpace(req.FileMimeType)),
	}
	if email := strings.TrimSpace(req.ContactEmail); email != "" {
		s.ContactEmail = &email
	}
	if req.Date != "" {
		d, _ := time.Parse("2006-01-02", req.Date)
		s.Date = &d
	}
	return s
}

// Submit stores a new show for the caller.  It stays invisible until an
// administrator approves it.  The company name is the caller's.
func (h *ShowHandler) Submit(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req submitShowReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if ok, err := req.check(c); !ok {
		return err
	}

	ctx := c.Request().Context()
	owner, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown account"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load account failed"})
	}

	s := req.show()
	s.OwnerID = &uid
	s.CompanyName = owner.CompanyName
	if s.CompanyName == "" {
		s.CompanyName = owner.Username
	}
	if s.Region == "" {
		s.Region = owner.Region
	}
	if !s.HasCoordinates() {
		h.locate(ctx, &s)
	}

	if err := h.Shows.Create(ctx, &s); err != nil {
		h.Log.Error("submit show failed", zap.Uint64("user_id", uid), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create show failed"})
	}
	h.Log.Info("show submitted", zap.Uint64("show_id", s.ID), zap.Uint64("user_id", uid))
	subject, body := notify.ShowAlert(s)
	h.Alerts.Alert(ctx, subject, body)
	return c.JSON(http.StatusCreated, s)
}

// Update replaces the content of a show.  Owners may edit their own shows,
// administrators any show.  Approval and display order are kept, so an
// approved show stays public.  Coordinates are kept while the location is
// unchanged and none are sent.
func (h *ShowHandler) Update(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req submitShowReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if ok, err := req.check(c); !ok {
		return err
	}

	ctx := c.Request().Context()
	admin := middleware.IsAdmin(c)
	cur, err := h.Shows.GetByID(ctx, id)
	if errors.Is(err, repository.ErrShowNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	}
	if err != nil {
		h.Log.Error("load show failed", zap.Uint64("show_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !admin && (cur.OwnerID == nil || *cur.OwnerID != uid) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	s := req.show()
	s.ID = id
	s.CompanyName = cur.CompanyName
	if s.Region == "" {
		s.Region = cur.Region
	}
	if !s.HasCoordinates() {
		if strings.EqualFold(s.Location, cur.Location) && cur.HasCoordinates() {
			s.Latitude, s.Longitude = cur.Latitude, cur.Longitude
		} else {
			h.locate(ctx, &s)
		}
	}

	err = h.Shows.Update(ctx, &s, uid, admin)
	switch {
	case errors.Is(err, repository.ErrShowNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case err != nil:
		h.Log.Error("update show failed", zap.Uint64("show_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.Log.Info("show updated", zap.Uint64("show_id", id), zap.Uint64("user_id", uid))
	return c.JSON(http.StatusOK, s)
}

// locate geocodes the show location.  Failures leave the show without
// coordinates; it then simply never appears in radius searches.
func (h *ShowHandler) locate(ctx context.Context, s *model.Show) {
	if h.Geocoder == nil || s.Location == "" {
		return
	}
	gctx, cancel := context.WithTimeout(ctx, h.GeocodeTimeout)
	defer cancel()
	p, ok, err := h.Geocoder.Resolve(gctx, s.Location)
	if err != nil {
		h.Log.Warn("geocode show location failed", zap.String("location", s.Location), zap.Error(err))
		return
	}
	if ok {
		s.Latitude, s.Longitude = &p.Lat, &p.Lng
	}
}

// Mine lists the caller's shows, approved or not.
func (h *ShowHandler) Mine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Shows.ListByOwner(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("list own shows failed", zap.Uint64("user_id", uid), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if items == nil {
		items = []model.Show{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Delete removes a show.  Owners may delete their own shows,
// administrators any show.
func (h *ShowHandler) Delete(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	err = h.Shows.Delete(c.Request().Context(), id, uid, middleware.IsAdmin(c))
	switch {
	case errors.Is(err, repository.ErrShowNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case err != nil:
		h.Log.Error("delete show failed", zap.Uint64("show_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Approve makes a show public.  Approving twice is not an error; the
// response tells whether it was already approved.
func (h *ShowHandler) Approve(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	already, err := h.Shows.Approve(c.Request().Context(), id)
	if errors.Is(err, repository.ErrShowNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	}
	if err != nil {
		h.Log.Error("approve show failed", zap.Uint64("show_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "approve failed"})
	}
	if !already {
		h.Log.Info("show approved", zap.Uint64("show_id", id))
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "approved": true, "already_approved": already})
}

type displayOrderReq struct {
	DisplayOrder *int `json:"display_order" validate:"required"`
}

// SetDisplayOrder changes the manual rank of a show; lower sorts first.
func (h *ShowHandler) SetDisplayOrder(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req displayOrderReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	err = h.Shows.SetDisplayOrder(c.Request().Context(), id, *req.DisplayOrder)
	if errors.Is(err, repository.ErrShowNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	}
	if err != nil {
		h.Log.Error("set display order failed", zap.Uint64("show_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "display_order": *req.DisplayOrder})
}
