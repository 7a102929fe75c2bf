package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/show-directory/internal/model"
	"github.com/iliyamo/show-directory/internal/search"
)

// showSelect lists the shows columns in the order scanShow reads them.
const showSelect = `SELECT s.id, s.user_id, s.company_name, s.title, s.description, s.category,
		s.location, s.region, s.age_range, s.latitude, s.longitude, s.date, s.is_event,
		s.contact_email, s.contact_phone, s.website, s.file_name, s.file_mimetype,
		s.approved, s.display_order, s.created_at
	FROM shows s`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(sc rowScanner) (model.Show, error) {
	var (
		s        model.Show
		ownerID  sql.NullInt64
		lat, lng sql.NullFloat64
		date     sql.NullTime
		email    sql.NullString
	)
	if err := sc.Scan(
		&s.ID, &ownerID, &s.CompanyName, &s.Title, &s.Description, &s.Category,
		&s.Location, &s.Region, &s.AgeRange, &lat, &lng, &date, &s.IsEvent,
		&email, &s.ContactPhone, &s.Website, &s.FileName, &s.FileMimeType,
		&s.Approved, &s.DisplayOrder, &s.CreatedAt,
	); err != nil {
		return s, err
	}
	if ownerID.Valid {
		id := uint64(ownerID.Int64)
		s.OwnerID = &id
	}
	// Coordinates are kept only as a pair.
	if lat.Valid && lng.Valid {
		s.Latitude, s.Longitude = &lat.Float64, &lng.Float64
	}
	if date.Valid {
		d := date.Time
		s.Date = &d
	}
	if email.Valid && strings.TrimSpace(email.String) != "" {
		e := email.String
		s.ContactEmail = &e
	}
	return s, nil
}

func scanShows(rows *sql.Rows) ([]model.Show, error) {
	defer rows.Close()
	out := []model.Show{}
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// Create inserts a new, unapproved show and fills in its generated ID and
// creation time.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	const q = `INSERT INTO shows (user_id, company_name, title, description, category, location,
		region, age_range, latitude, longitude, date, is_event, contact_email, contact_phone,
		website, file_name, file_mimetype, approved, display_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?)`
	var lat, lng any
	if s.HasCoordinates() {
		lat, lng = *s.Latitude, *s.Longitude
	}
	var date any
	if s.Date != nil {
		date = s.Date.Format("2006-01-02")
	}
	res, err := r.db.ExecContext(ctx, q,
		s.OwnerID, s.CompanyName, s.Title, s.Description, s.Category, s.Location,
		s.Region, s.AgeRange, lat, lng, date, s.IsEvent, s.ContactEmail, s.ContactPhone,
		s.Website, s.FileName, s.FileMimeType, s.DisplayOrder,
	)
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
	*s = created
	return nil
}

// GetByID retrieves a show by its ID.  It returns ErrShowNotFound if
// there is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (model.Show, error) {
	s, err := scanShow(r.db.QueryRowContext(ctx, showSelect+` WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Show{}, ErrShowNotFound
		}
		return model.Show{}, err
	}
	return s, nil
}

// Approve sets the approval flag.  Approving an approved show changes
// nothing and reports already=true.
func (r *ShowRepo) Approve(ctx context.Context, id uint64) (already bool, err error) {
	res, err := r.db.ExecContext(ctx, `UPDATE shows SET approved = TRUE WHERE id = ? AND approved = FALSE`, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	var approved bool
	if err := r.db.QueryRowContext(ctx, `SELECT approved FROM shows WHERE id = ?`, id).Scan(&approved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrShowNotFound
		}
		return false, err
	}
	return true, nil
}

// Update rewrites the editable columns of s.ID under the same ownership rule
// as Delete.  Approval, display order, owner and creation time are never
// touched.  On success s is reloaded from the row.
func (r *ShowRepo) Update(ctx context.Context, s *model.Show, callerID uint64, admin bool) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var owner sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM shows WHERE id = ? FOR UPDATE`, s.ID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShowNotFound
		}
		return err
	}
	if !admin && (!owner.Valid || uint64(owner.Int64) != callerID) {
		return ErrForbidden
	}

	var lat, lng any
	if s.HasCoordinates() {
		lat, lng = *s.Latitude, *s.Longitude
	}
	var date any
	if s.Date != nil {
		date = s.Date.Format("2006-01-02")
	}
	_, err = tx.ExecContext(ctx, `UPDATE shows SET company_name = ?, title = ?, description = ?,
		category = ?, location = ?, region = ?, age_range = ?, latitude = ?, longitude = ?, date = ?,
		is_event = ?, contact_email = ?, contact_phone = ?, website = ?, file_name = ?, file_mimetype = ?
		WHERE id = ?`,
		s.CompanyName, s.Title, s.Description, s.Category, s.Location, s.Region, s.AgeRange,
		lat, lng, date, s.IsEvent, s.ContactEmail, s.ContactPhone, s.Website, s.FileName, s.FileMimeType,
		s.ID,
	)
	if err != nil {
		return err
	}
	updated, err := scanShow(tx.QueryRowContext(ctx, showSelect+` WHERE s.id = ?`, s.ID))
	if err != nil {
		return err
	}
	*s = updated
	return nil
}

// Delete removes a show.  A non-admin caller may only delete shows owned
// by its own account.  The ownership check and delete share a transaction.
func (r *ShowRepo) Delete(ctx context.Context, id, callerID uint64, admin bool) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var owner sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM shows WHERE id = ? FOR UPDATE`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShowNotFound
		}
		return err
	}
	if !admin && (!owner.Valid || uint64(owner.Int64) != callerID) {
		return ErrForbidden
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, id)
	return err
}

// Find implements search.Catalog: one COUNT and one page query built from
// the same rendered predicate.
func (r *ShowRepo) Find(ctx context.Context, where search.Predicate, order search.Ordering, page, pageSize int) ([]model.Show, int64, error) {
	cond, args, err := renderWhere(where)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shows s WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shows: %w", err)
	}
	if total == 0 {
		return []model.Show{}, 0, nil
	}

	orderBy, orderArgs := renderOrder(order)
	dataSQL := showSelect + ` WHERE ` + cond + ` ORDER BY ` + orderBy + ` LIMIT ? OFFSET ?`
	argsData := append(append(append([]any{}, args...), orderArgs...), pageSize, search.Offset(page, pageSize))

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, fmt.Errorf("list shows: %w", err)
	}
	out, err := scanShows(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListCandidates implements geo.Candidates.  Rows come back by ID so the
// unranked listing is stable.
func (r *ShowRepo) ListCandidates(ctx context.Context, textQuery string, approvedOnly bool) ([]model.Show, error) {
	var must []search.Predicate
	if approvedOnly {
		must = append(must, search.IsTrue(search.FieldApproved))
	}
	if q := strings.TrimSpace(textQuery); q != "" {
		must = append(must, search.Or(
			search.Contains(search.FieldTitle, q),
			search.Contains(search.FieldDescription, q),
		))
	}
	cond, args, err := renderWhere(search.And(must...))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, showSelect+` WHERE `+cond+` ORDER BY s.id ASC`, args...)
	if err != nil {
		return nil, err
	}
	return scanShows(rows)
}

// ListApprovedByCategories returns approved shows whose category contains
// any of the labels.
func (r *ShowRepo) ListApprovedByCategories(ctx context.Context, categories []string) ([]model.Show, error) {
	anyOf := make([]search.Predicate, 0, len(categories))
	for _, c := range categories {
		anyOf = append(anyOf, search.Contains(search.FieldCategory, c))
	}
	cond, args, err := renderWhere(search.And(search.IsTrue(search.FieldApproved), search.Or(anyOf...)))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, showSelect+` WHERE `+cond+` ORDER BY s.id ASC`, args...)
	if err != nil {
		return nil, err
	}
	return scanShows(rows)
}

// ListByOwner returns every show of an account, newest first.
func (r *ShowRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Show, error) {
	rows, err := r.db.QueryContext(ctx, showSelect+` WHERE s.user_id = ? ORDER BY s.created_at DESC, s.id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanShows(rows)
}

// Facets lists the distinct categories and locations of approved shows for
// the search form.
type Facets struct {
	Categories []string `json:"categories"`
	Locations  []string `json:"locations"`
}

// Facets implements the search form helper.
func (r *ShowRepo) Facets(ctx context.Context) (Facets, error) {
	cats, err := r.distinct(ctx, "category")
	if err != nil {
		return Facets{}, err
	}
	locs, err := r.distinct(ctx, "location")
	if err != nil {
		return Facets{}, err
	}
	return Facets{Categories: cats, Locations: locs}, nil
}

func (r *ShowRepo) distinct(ctx context.Context, column string) ([]string, error) {
	q := `SELECT DISTINCT ` + column + ` FROM shows WHERE approved = TRUE AND ` + column + ` <> '' ORDER BY ` + column + ` ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SetDisplayOrder changes the manual ordering of a show.
func (r *ShowRepo) SetDisplayOrder(ctx context.Context, id uint64, order int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE shows SET display_order = ? WHERE id = ?`, order, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

