package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/show-directory/internal/model"
	"github.com/iliyamo/show-directory/internal/search"
)

const requestSelect = `SELECT id, title, organisation, contact_name, phone, contact_email, city,
	postal_code, region, dates, venue_type, wanted_category, age_range, audience, budget,
	COALESCE(technical_constraints, ''), accessibility, is_private, created_at
	FROM animation_requests`

// RequestRepo persists animation requests.
type RequestRepo struct{ db *sql.DB }

func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

func scanRequest(sc rowScanner) (model.AnimationRequest, error) {
	var a model.AnimationRequest
	err := sc.Scan(&a.ID, &a.Title, &a.Organisation, &a.ContactName, &a.Phone, &a.ContactEmail, &a.City,
		&a.PostalCode, &a.Region, &a.Dates, &a.VenueType, &a.WantedCategory, &a.AgeRange, &a.Audience, &a.Budget,
		&a.Constraints, &a.Accessibility, &a.IsPrivate, &a.CreatedAt)
	return a, err
}

// Create stores a submitted request and fills in its ID and timestamp.
func (r *RequestRepo) Create(ctx context.Context, a *model.AnimationRequest) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO animation_requests (title, organisation, contact_name,
		phone, contact_email, city, postal_code, region, dates, venue_type, wanted_category, age_range,
		audience, budget, technical_constraints, accessibility, is_private)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.Organisation, a.ContactName, a.Phone, a.ContactEmail, a.City, a.PostalCode, a.Region,
		a.Dates, a.VenueType, a.WantedCategory, a.AgeRange, a.Audience, a.Budget, a.Constraints,
		a.Accessibility, a.IsPrivate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*a = created
	return nil
}

// GetByID returns ErrRequestNotFound for an unknown id.
func (r *RequestRepo) GetByID(ctx context.Context, id uint64) (model.AnimationRequest, error) {
	a, err := scanRequest(r.db.QueryRowContext(ctx, requestSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrRequestNotFound
	}
	return a, err
}

// List returns one page of requests, newest first.  Private requests are
// included only when includePrivate is set.
func (r *RequestRepo) List(ctx context.Context, includePrivate bool, page, pageSize int) ([]model.AnimationRequest, int64, error) {
	cond := "1=1"
	if !includePrivate {
		cond = "is_private = FALSE"
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM animation_requests WHERE `+cond).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		requestSelect+` WHERE `+cond+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		pageSize, search.Offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.AnimationRequest{}
	for rows.Next() {
		a, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// Update rewrites every submitted field of a.ID.  The privacy flag and the
// creation time are kept.  On success a is reloaded.
func (r *RequestRepo) Update(ctx context.Context, a *model.AnimationRequest) error {
	_, err := r.db.ExecContext(ctx, `UPDATE animation_requests SET title = ?, organisation = ?,
		contact_name = ?, phone = ?, contact_email = ?, city = ?, postal_code = ?, region = ?, dates = ?,
		venue_type = ?, wanted_category = ?, age_range = ?, audience = ?, budget = ?,
		technical_constraints = ?, accessibility = ?
		WHERE id = ?`,
		a.Title, a.Organisation, a.ContactName, a.Phone, a.ContactEmail, a.City, a.PostalCode, a.Region,
		a.Dates, a.VenueType, a.WantedCategory, a.AgeRange, a.Audience, a.Budget, a.Constraints,
		a.Accessibility, a.ID)
	if err != nil {
		return err
	}
	updated, err := r.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	*a = updated
	return nil
}

// SetPrivate toggles the visibility flag.
func (r *RequestRepo) SetPrivate(ctx context.Context, id uint64, private bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE animation_requests SET is_private = ? WHERE id = ?`, private, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports zero rows when the value is unchanged.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
