// Package memory is an in-process implementation of the repository stores.
// It evaluates search predicates with Predicate.Match and is used when
// DB_DRIVER=memory and by handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/show-directory/internal/model"
	"github.com/iliyamo/show-directory/internal/repository"
	"github.com/iliyamo/show-directory/internal/search"
	"github.com/iliyamo/show-directory/internal/utils"
)

// Store holds every table behind one RWMutex.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	shows    map[uint64]model.Show
	users    map[uint64]model.User
	requests map[uint64]model.AnimationRequest
	tokens   map[string]model.RefreshToken
	nextID   uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		shows:    map[uint64]model.Show{},
		users:    map[uint64]model.User{},
		requests: map[uint64]model.AnimationRequest{},
		tokens:   map[string]model.RefreshToken{},
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// Shows returns the store as a repository.ShowStore.
func (s *Store) Shows() repository.ShowStore { return showStore{s} }

// Users returns the store as a repository.UserStore.
func (s *Store) Users() repository.UserStore { return userStore{s} }

// Tokens returns the store as a repository.TokenStore.
func (s *Store) Tokens() repository.TokenStore { return tokenStore{s} }

// Requests returns the store as a repository.RequestStore.
func (s *Store) Requests() repository.RequestStore { return requestStore{s} }

type showStore struct{ *Store }

// Seed inserts a show as is (approval flag and creation time included).
// A zero ID gets a fresh one.
func (s *Store) Seed(sh model.Show) model.Show {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh.ID == 0 {
		sh.ID = s.id()
	} else if sh.ID > s.nextID {
		s.nextID = sh.ID
	}
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = s.now()
	}
	s.shows[sh.ID] = sh
	return sh
}

func (s showStore) Create(_ context.Context, sh *model.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh.ID = s.id()
	sh.Approved = false
	sh.CreatedAt = s.now()
	if !sh.HasCoordinates() {
		sh.Latitude, sh.Longitude = nil, nil
	}
	s.shows[sh.ID] = *sh
	return nil
}

func (s showStore) GetByID(_ context.Context, id uint64) (model.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shows[id]
	if !ok {
		return model.Show{}, repository.ErrShowNotFound
	}
	return sh, nil
}

func (s showStore) Approve(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shows[id]
	if !ok {
		return false, repository.ErrShowNotFound
	}
	if sh.Approved {
		return true, nil
	}
	sh.Approved = true
	s.shows[id] = sh
	return false, nil
}

func (s showStore) Update(_ context.Context, sh *model.Show, callerID uint64, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.shows[sh.ID]
	if !ok {
		return repository.ErrShowNotFound
	}
	if !admin && (cur.OwnerID == nil || *cur.OwnerID != callerID) {
		return repository.ErrForbidden
	}
	next := *sh
	next.OwnerID = cur.OwnerID
	next.Approved = cur.Approved
	next.DisplayOrder = cur.DisplayOrder
	next.CreatedAt = cur.CreatedAt
	if !next.HasCoordinates() {
		next.Latitude, next.Longitude = nil, nil
	}
	s.shows[sh.ID] = next
	*sh = next
	return nil
}

func (s showStore) Delete(_ context.Context, id, callerID uint64, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shows[id]
	if !ok {
		return repository.ErrShowNotFound
	}
	if !admin && (sh.OwnerID == nil || *sh.OwnerID != callerID) {
		return repository.ErrForbidden
	}
	delete(s.shows, id)
	return nil
}

func (s showStore) SetDisplayOrder(_ context.Context, id uint64, order int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shows[id]
	if !ok {
		return repository.ErrShowNotFound
	}
	sh.DisplayOrder = order
	s.shows[id] = sh
	return nil
}

// filter returns matching shows sorted by ID.
func (s showStore) filter(where search.Predicate) []model.Show {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Show{}
	for _, sh := range s.shows {
		if where.Match(sh) {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s showStore) Find(_ context.Context, where search.Predicate, order search.Ordering, page, pageSize int) ([]model.Show, int64, error) {
	hits := s.filter(where)
	order.Sort(hits)
	pageItems := search.Paginate(hits, page, pageSize)
	return append([]model.Show{}, pageItems...), int64(len(hits)), nil
}

func (s showStore) ListCandidates(_ context.Context, textQuery string, approvedOnly bool) ([]model.Show, error) {
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
	return s.filter(search.And(must...)), nil
}

func (s showStore) ListApprovedByCategories(_ context.Context, categories []string) ([]model.Show, error) {
	anyOf := make([]search.Predicate, 0, len(categories))
	for _, c := range categories {
		anyOf = append(anyOf, search.Contains(search.FieldCategory, c))
	}
	return s.filter(search.And(search.IsTrue(search.FieldApproved), search.Or(anyOf...))), nil
}

func (s showStore) ListByOwner(_ context.Context, ownerID uint64) ([]model.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Show{}
	for _, sh := range s.shows {
		if sh.OwnerID != nil && *sh.OwnerID == ownerID {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s showStore) Facets(context.Context) (repository.Facets, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cats, locs := map[string]bool{}, map[string]bool{}
	for _, sh := range s.shows {
		if !sh.Approved {
			continue
		}
		if sh.Category != "" {
			cats[sh.Category] = true
		}
		if sh.Location != "" {
			locs[sh.Location] = true
		}
	}
	return repository.Facets{Categories: sortedKeys(cats), Locations: sortedKeys(locs)}, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type userStore struct{ *Store }

func (s userStore) Create(_ context.Context, u *model.User, password string, cost int) error {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return repository.ErrUsernameExists
		}
	}
	u.ID = s.id()
	u.PasswordHash = hash
	u.CreatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

func (s userStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s userStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s userStore) AccountsByIDs(_ context.Context, ids []uint64) (map[uint64]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint64]model.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s userStore) AccountsWithRegion(context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.User{}
	for _, u := range s.users {
		if strings.TrimSpace(u.Region) != "" && u.Email() != "" {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s userStore) EnsureAdmin(ctx context.Context, username, password string, cost int) (bool, error) {
	u, err := s.GetByUsername(ctx, username)
	if err == nil {
		s.mu.Lock()
		u.IsAdmin = true
		s.users[u.ID] = u
		s.mu.Unlock()
		return false, nil
	}
	admin := model.User{Username: username, IsAdmin: true}
	if err := s.Create(ctx, &admin, password, cost); err != nil {
		return false, err
	}
	return true, nil
}

type tokenStore struct{ *Store }

func (s tokenStore) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = model.RefreshToken{ID: s.id(), UserID: userID, TokenHash: tokenHash, ExpiresAt: exp.UTC(), CreatedAt: s.now()}
	return nil
}

func (s tokenStore) Rotate(_ context.Context, oldHash, newHash string, exp time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[oldHash]
	now := s.now()
	if !ok || t.RevokedAt != nil || now.After(t.ExpiresAt) {
		return 0, repository.ErrRefreshInvalid
	}
	t.RevokedAt = &now
	s.tokens[oldHash] = t
	s.tokens[newHash] = model.RefreshToken{ID: s.id(), UserID: t.UserID, TokenHash: newHash, ExpiresAt: exp.UTC(), CreatedAt: now}
	return t.UserID, nil
}

func (s tokenStore) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := s.now()
		t.RevokedAt = &now
		s.tokens[tokenHash] = t
	}
	return nil
}

type requestStore struct{ *Store }

func (s requestStore) Create(_ context.Context, a *model.AnimationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	a.CreatedAt = s.now()
	s.requests[a.ID] = *a
	return nil
}

func (s requestStore) GetByID(_ context.Context, id uint64) (model.AnimationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.requests[id]
	if !ok {
		return model.AnimationRequest{}, repository.ErrRequestNotFound
	}
	return a, nil
}

func (s requestStore) List(_ context.Context, includePrivate bool, page, pageSize int) ([]model.AnimationRequest, int64, error) {
	s.mu.RLock()
	all := make([]model.AnimationRequest, 0, len(s.requests))
	for _, a := range s.requests {
		if includePrivate || !a.IsPrivate {
			all = append(all, a)
		}
	}
	s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return append([]model.AnimationRequest{}, search.Paginate(all, page, pageSize)...), int64(len(all)), nil
}

func (s requestStore) Update(_ context.Context, a *model.AnimationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.requests[a.ID]
	if !ok {
		return repository.ErrRequestNotFound
	}
	next := *a
	next.IsPrivate = cur.IsPrivate
	next.CreatedAt = cur.CreatedAt
	s.requests[a.ID] = next
	*a = next
	return nil
}

func (s requestStore) SetPrivate(_ context.Context, id uint64, private bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.requests[id]
	if !ok {
		return repository.ErrRequestNotFound
	}
	a.IsPrivate = private
	s.requests[id] = a
	return nil
}
