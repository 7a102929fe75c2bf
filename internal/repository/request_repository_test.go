package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/show-directory/internal/model"
)

var requestCols = []string{"id", "title", "organisation", "contact_name", "phone", "contact_email", "city",
	"postal_code", "region", "dates", "venue_type", "wanted_category", "age_range", "audience", "budget",
	"constraints", "accessibility", "is_private", "created_at"}

func requestRow(rows *sqlmock.Rows, id int64, private bool) *sqlmock.Rows {
	return rows.AddRow(id, "Kermesse", "École", "Mme L", "0600", "ecole@x.fr", "Rennes", "35000", "Bretagne",
		"samedi", "préau", "Clown", "6-10", "80", "500€", "", "", private, time.Now())
}

func TestRequestRepo_ListPublicHidesPrivate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM animation_requests WHERE is_private = FALSE")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`WHERE is_private = FALSE ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs(20, 20).
		WillReturnRows(requestRow(sqlmock.NewRows(requestCols), 3, false))

	items, total, err := NewRequestRepo(db).List(context.Background(), false, 2, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Bretagne", items[0].Region)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_SetPrivateUnknown(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE animation_requests SET is_private").WithArgs(true, 99).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM animation_requests WHERE id").WithArgs(99).WillReturnRows(sqlmock.NewRows(requestCols))

	err := NewRequestRepo(db).SetPrivate(context.Background(), 99, true)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRequestRepo_Update(t *testing.T) {
	db, mock := newMock(t)
	a := model.AnimationRequest{ID: 3, Title: "Kermesse", Organisation: "École", ContactName: "Mme L",
		Phone: "0600", ContactEmail: "ecole@x.fr", City: "Rennes", PostalCode: "35000", Region: "Bretagne",
		Dates: "samedi", VenueType: "préau", WantedCategory: "Clown", AgeRange: "6-10", Audience: "80", Budget: "500€"}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE animation_requests SET title = ?, organisation = ?")).
		WithArgs("Kermesse", "École", "Mme L", "0600", "ecole@x.fr", "Rennes", "35000", "Bretagne",
			"samedi", "préau", "Clown", "6-10", "80", "500€", "", "", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM animation_requests WHERE id").WithArgs(3).
		WillReturnRows(requestRow(sqlmock.NewRows(requestCols), 3, true))

	require.NoError(t, NewRequestRepo(db).Update(context.Background(), &a))
	assert.True(t, a.IsPrivate, "privacy is kept from the stored row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_UpdateUnknown(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE animation_requests SET title").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM animation_requests WHERE id").WithArgs(99).WillReturnRows(sqlmock.NewRows(requestCols))

	err := NewRequestRepo(db).Update(context.Background(), &model.AnimationRequest{ID: 99})
	assert.ErrorIs(t, err, ErrRequestNotFound)
}
