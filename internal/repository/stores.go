package repository

import (
	"context"
	"time"

	"github.com/iliyamo/show-directory/internal/model"
	"github.com/iliyamo/show-directory/internal/search"
)

// ShowStore is the show storage used by handlers.  ShowRepo and the
// in-memory store both implement it.
type ShowStore interface {
	search.Catalog
	Create(ctx context.Context, s *model.Show) error
	GetByID(ctx context.Context, id uint64) (model.Show, error)
	Approve(ctx context.Context, id uint64) (already bool, err error)
	Update(ctx context.Context, s *model.Show, callerID uint64, admin bool) error
	Delete(ctx context.Context, id, callerID uint64, admin bool) error
	ListCandidates(ctx context.Context, textQuery string, approvedOnly bool) ([]model.Show, error)
	ListApprovedByCategories(ctx context.Context, categories []string) ([]model.Show, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Show, error)
	Facets(ctx context.Context) (Facets, error)
	SetDisplayOrder(ctx context.Context, id uint64, order int) error
}

// UserStore is the account storage.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	AccountsByIDs(ctx context.Context, ids []uint64) (map[uint64]model.User, error)
	AccountsWithRegion(ctx context.Context) ([]model.User, error)
	EnsureAdmin(ctx context.Context, username, password string, cost int) (created bool, err error)
}

// TokenStore keeps refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
}

// RequestStore keeps animation requests.
type RequestStore interface {
	Create(ctx context.Context, a *model.AnimationRequest) error
	GetByID(ctx context.Context, id uint64) (model.AnimationRequest, error)
	List(ctx context.Context, includePrivate bool, page, pageSize int) ([]model.AnimationRequest, int64, error)
	Update(ctx context.Context, a *model.AnimationRequest) error
	SetPrivate(ctx context.Context, id uint64, private bool) error
}

// Directory joins show and account storage for the notification matcher.
type Directory struct {
	Shows ShowStore
	Users UserStore
}

func (d Directory) ListApprovedByCategories(ctx context.Context, categories []string) ([]model.Show, error) {
	return d.Shows.ListApprovedByCategories(ctx, categories)
}

func (d Directory) AccountsByIDs(ctx context.Context, ids []uint64) (map[uint64]model.User, error) {
	return d.Users.AccountsByIDs(ctx, ids)
}

func (d Directory) AccountsWithRegion(ctx context.Context) ([]model.User, error) {
	return d.Users.AccountsWithRegion(ctx)
}

var (
	_ ShowStore    = (*ShowRepo)(nil)
	_ UserStore    = (*UserRepo)(nil)
	_ TokenStore   = (*TokenRepo)(nil)
	_ RequestStore = (*RequestRepo)(nil)
)
