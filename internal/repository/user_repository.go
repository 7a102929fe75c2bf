package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/show-directory/internal/model"
	"github.com/iliyamo/show-directory/internal/utils"
)

const userSelect = `SELECT id, username, password_hash, company_name, email, phone, region, is_admin, created_at FROM users`

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(sc rowScanner) (model.User, error) {
	var (
		u     model.User
		email sql.NullString
	)
	if err := sc.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CompanyName, &email, &u.Phone, &u.Region, &u.IsAdmin, &u.CreatedAt); err != nil {
		return u, err
	}
	if email.Valid && strings.TrimSpace(email.String) != "" {
		e := email.String
		u.ContactEmail = &e
	}
	return u, nil
}

// Create hashes password, inserts the account and sets its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, company_name, email, phone, region, is_admin) VALUES (?,?,?,?,?,?,?)",
		u.Username, hash, u.CompanyName, u.ContactEmail, u.Phone, u.Region, u.IsAdmin)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrUsernameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.PasswordHash = hash
	return nil
}

// GetByUsername fetches an account by normalized login.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	u, err := scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE username=? LIMIT 1", username))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches an account by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// AccountsByIDs loads the accounts with the given ids; unknown ids are absent
// from the map.
func (r *UserRepo) AccountsByIDs(ctx context.Context, ids []uint64) (map[uint64]model.User, error) {
	out := make(map[uint64]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := userSelect + " WHERE id IN (?" + strings.Repeat(",?", len(ids)-1) + ")"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// AccountsWithRegion returns accounts having a region and a contact email.
func (r *UserRepo) AccountsWithRegion(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		userSelect+" WHERE region <> '' AND email IS NOT NULL AND email <> '' ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// EnsureAdmin creates the administrator account when it does not exist and
// promotes it otherwise.  The password of an existing account is left alone.
func (r *UserRepo) EnsureAdmin(ctx context.Context, username, password string, cost int) (created bool, err error) {
	u, err := r.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if u.IsAdmin {
			return false, nil
		}
		_, err = r.DB.ExecContext(ctx, "UPDATE users SET is_admin=TRUE WHERE id=?", u.ID)
		return false, err
	case !errors.Is(err, ErrUserNotFound):
		return false, err
	}
	admin := model.User{Username: username, IsAdmin: true}
	if err := r.Create(ctx, &admin, password, cost); err != nil {
		return false, err
	}
	return true, nil
}
