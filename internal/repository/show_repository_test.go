package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/show-directory/internal/model"
	"github.com/iliyamo/show-directory/internal/search"
)

var showCols = []string{"id", "user_id", "company_name", "title", "description", "category",
	"location", "region", "age_range", "latitude", "longitude", "date", "is_event",
	"contact_email", "contact_phone", "website", "file_name", "file_mimetype",
	"approved", "display_order", "created_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func showRow(rows *sqlmock.Rows, id int64, title string, lat, lng any, email any) *sqlmock.Rows {
	created := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(id, nil, "Cie", title, "desc", "Clown", "Rennes", "Bretagne", "6 à 10 ans",
		lat, lng, nil, false, email, "", "", "", "", true, 0, created)
}

func TestShowRepo_FindCountsThenPages(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM shows s WHERE (s.approved = TRUE AND LOWER(s.category) LIKE ?)")).
		WithArgs("%clown%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))
	rows := sqlmock.NewRows(showCols)
	showRow(rows, 3, "Pipo", 48.1, -1.6, "a@b.fr")
	showRow(rows, 4, "Zaza", nil, -1.6, nil)
	mock.ExpectQuery(`ORDER BY CASE WHEN .* LIMIT \? OFFSET \?`).
		WithArgs("%clown%", "%vedette%", "%enfant%", "%atelier%", 16, 16).
		WillReturnRows(rows)

	where := search.BuildFilter(search.Criteria{Category: "clown"})
	items, total, err := repo.Find(context.Background(), where, search.PublicView.Ordering(false), 2, 16)
	require.NoError(t, err)
	assert.Equal(t, int64(17), total)
	require.Len(t, items, 2)
	assert.True(t, items[0].HasCoordinates())
	assert.Equal(t, "a@b.fr", items[0].Email())
	assert.False(t, items[1].HasCoordinates(), "a lone coordinate is dropped")
	assert.Nil(t, items[1].ContactEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_FindEmptySkipsPageQuery(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM shows`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := NewShowRepo(db).Find(context.Background(), search.And(), search.Ordering{}, 1, 16)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_FindPropagatesErrors(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("too many connections"))

	_, _, err := NewShowRepo(db).Find(context.Background(), search.And(), search.Ordering{}, 1, 16)
	assert.Error(t, err)
}

func TestShowRepo_ApproveIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE shows SET approved = TRUE WHERE id = ? AND approved = FALSE")).
		WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	already, err := repo.Approve(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, already)

	mock.ExpectExec("UPDATE shows SET approved").WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT approved FROM shows").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"approved"}).AddRow(true))
	already, err = repo.Approve(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, already)

	mock.ExpectExec("UPDATE shows SET approved").WithArgs(6).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT approved FROM shows").WithArgs(6).WillReturnError(sql.ErrNoRows)
	_, err = repo.Approve(context.Background(), 6)
	assert.ErrorIs(t, err, ErrShowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_DeleteChecksOwnership(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM shows").WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2))
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Delete(context.Background(), 8, 3, false), ErrForbidden)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM shows").WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2))
	mock.ExpectExec("DELETE FROM shows").WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	assert.NoError(t, repo.Delete(context.Background(), 8, 3, true))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM shows").WithArgs(9).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Delete(context.Background(), 9, 3, true), ErrShowNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_UpdateChecksOwnershipAndReloads(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)
	s := model.Show{ID: 8, CompanyName: "Cie", Title: "Pipo 2", Category: "Clown", Location: "Rennes"}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM shows").WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2))
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Update(context.Background(), &s, 3, false), ErrForbidden)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM shows").WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE shows SET company_name = ?, title = ?")).
		WithArgs("Cie", "Pipo 2", "", "Clown", "Rennes", "", "", nil, nil, nil, false, nil, "", "", "", "", 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows(showCols)
	showRow(rows, 8, "Pipo 2", nil, nil, nil)
	mock.ExpectQuery(`FROM shows s WHERE s.id = \?`).WithArgs(8).WillReturnRows(rows)
	mock.ExpectCommit()
	require.NoError(t, repo.Update(context.Background(), &s, 2, false))
	assert.Equal(t, "Pipo 2", s.Title)
	assert.True(t, s.Approved, "the approval flag comes back from the row")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM shows").WithArgs(9).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Update(context.Background(), &model.Show{ID: 9}, 1, true), ErrShowNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowRepo(db)
	owner := uint64(4)
	email := "cie@x.fr"
	lat, lng := 48.1, -1.6
	s := model.Show{OwnerID: &owner, Title: "Pipo", Category: "Clown", ContactEmail: &email, Latitude: &lat, Longitude: &lng}

	mock.ExpectExec("INSERT INTO shows").
		WithArgs(&owner, "", "Pipo", "", "Clown", "", "", "", 48.1, -1.6, nil, false, &email, "", "", "", "", 0).
		WillReturnResult(sqlmock.NewResult(12, 1))
	rows := sqlmock.NewRows(showCols)
	showRow(rows, 12, "Pipo", 48.1, -1.6, "cie@x.fr")
	mock.ExpectQuery(`FROM shows s WHERE s.id = \?`).WithArgs(12).WillReturnRows(rows)

	require.NoError(t, repo.Create(context.Background(), &s))
	assert.Equal(t, uint64(12), s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowRepo_Facets(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT DISTINCT category").
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("Clown").AddRow("Magie"))
	mock.ExpectQuery("SELECT DISTINCT location").
		WillReturnRows(sqlmock.NewRows([]string{"location"}).AddRow("Rennes"))

	f, err := NewShowRepo(db).Facets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Clown", "Magie"}, f.Categories)
	assert.Equal(t, []string{"Rennes"}, f.Locations)
}

func TestShowRepo_ListCandidates(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (s.approved = TRUE AND (LOWER(s.title) LIKE ? OR LOWER(s.description) LIKE ?)) ORDER BY s.id ASC")).
		WithArgs("%cirque%", "%cirque%").
		WillReturnRows(showRow(sqlmock.NewRows(showCols), 1, "Cirque", 48.1, -1.6, nil))

	shows, err := NewShowRepo(db).ListCandidates(context.Background(), " Cirque ", true)
	require.NoError(t, err)
	assert.Len(t, shows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
