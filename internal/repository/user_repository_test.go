package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/show-directory/internal/model"
)

var userCols = []string{"id", "username", "password_hash", "company_name", "email", "phone", "region", "is_admin", "created_at"}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO users").WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	u := model.User{Username: " Cie@Lune.fr "}
	err := NewUserRepo(db).Create(context.Background(), &u, "secret", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrUsernameExists)
	assert.Equal(t, "cie@lune.fr", u.Username)
}

func TestUserRepo_CreateSetsID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(9, 1))

	u := model.User{Username: "cie"}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), &u, "secret", bcrypt.MinCost))
	assert.Equal(t, uint64(9), u.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret")))
}

func TestUserRepo_GetByUsernameNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM users WHERE username").WithArgs("nobody").WillReturnError(sql.ErrNoRows)

	_, err := NewUserRepo(db).GetByUsername(context.Background(), "Nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_AccountsByIDs(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE id IN \(\?,\?\)`).WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(1, "a", "h", "", "a@x.fr", "", "Bretagne", false, now).
			AddRow(2, "b", "h", "", nil, "", "", false, now))

	got, err := NewUserRepo(db).AccountsByIDs(context.Background(), []uint64{1, 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a@x.fr", got[1].Email())
	assert.Nil(t, got[2].ContactEmail)

	empty, err := NewUserRepo(db).AccountsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_EnsureAdmin(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("FROM users WHERE username").WithArgs("admin").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	created, err := repo.EnsureAdmin(context.Background(), "admin", "pw", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, created)

	mock.ExpectQuery("FROM users WHERE username").WithArgs("admin").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "admin", "h", "", nil, "", "", false, time.Now()))
	mock.ExpectExec("UPDATE users SET is_admin=TRUE").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	created, err = repo.EnsureAdmin(context.Background(), "admin", "pw", bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
