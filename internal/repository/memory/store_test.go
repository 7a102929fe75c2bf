package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/show-directory/internal/model"
	"github.com/iliyamo/show-directory/internal/repository"
	"github.com/iliyamo/show-directory/internal/search"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestFind_CategoryAgeAndDateFilters(t *testing.T) {
	st := New()
	st.Seed(model.Show{Title: "Pipo", Category: "Clown, Enfant", Approved: true, Date: day(2025, 12, 20)})
	st.Seed(model.Show{Title: "Contes", AgeRange: "6 à 10 ans", Approved: true})
	st.Seed(model.Show{Title: "Caché", Category: "Clown"})
	shows := st.Shows()
	ctx := context.Background()

	items, total, err := shows.Find(ctx, search.BuildFilter(search.Criteria{Category: "CLOWN"}), search.PublicView.Ordering(false), 1, 16)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Pipo", items[0].Title)

	items, _, err = shows.Find(ctx, search.BuildFilter(search.Criteria{Query: "6-10"}), search.PublicView.Ordering(false), 1, 16)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Contes", items[0].Title)

	items, _, err = shows.Find(ctx, search.BuildFilter(search.Criteria{DateFrom: "2025-12-20", DateTo: "2025-12-20"}), search.PublicView.Ordering(false), 1, 16)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Pipo", items[0].Title)

	_, total, err = shows.Find(ctx, search.BuildFilter(search.Criteria{Admin: true}), search.AdminView.Ordering(true), 1, 24)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestFind_PagesCoverTotal(t *testing.T) {
	st := New()
	for i := 0; i < 37; i++ {
		st.Seed(model.Show{Title: fmt.Sprintf("S%d", i), Approved: true, CreatedAt: time.Unix(int64(i%5), 0)})
	}
	where := search.BuildFilter(search.Criteria{})
	order := search.PublicView.Ordering(false)
	seen := map[uint64]bool{}
	for page := 1; page <= 3; page++ {
		items, total, err := st.Shows().Find(context.Background(), where, order, page, 16)
		require.NoError(t, err)
		assert.Equal(t, int64(37), total)
		for _, s := range items {
			assert.False(t, seen[s.ID])
			seen[s.ID] = true
		}
	}
	assert.Len(t, seen, 37)
}

func TestShowLifecycle(t *testing.T) {
	st := New()
	ctx := context.Background()
	owner := uint64(100)
	s := model.Show{Title: "Magie", OwnerID: &owner, Approved: true}
	require.NoError(t, st.Shows().Create(ctx, &s))
	assert.False(t, s.Approved, "new shows start unapproved")

	already, err := st.Shows().Approve(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, already)
	already, err = st.Shows().Approve(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, already)

	assert.ErrorIs(t, st.Shows().Delete(ctx, s.ID, 5, false), repository.ErrForbidden)
	assert.NoError(t, st.Shows().Delete(ctx, s.ID, owner, false))
	_, err = st.Shows().GetByID(ctx, s.ID)
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
}

func TestShowUpdate(t *testing.T) {
	st := New()
	ctx := context.Background()
	owner := uint64(100)
	seeded := st.Seed(model.Show{Title: "Magie", OwnerID: &owner, Approved: true, DisplayOrder: 3})

	edit := model.Show{ID: seeded.ID, Title: "Grande magie", Approved: false, DisplayOrder: 0}
	assert.ErrorIs(t, st.Shows().Update(ctx, &edit, 5, false), repository.ErrForbidden)
	require.NoError(t, st.Shows().Update(ctx, &edit, owner, false))
	assert.Equal(t, "Grande magie", edit.Title)
	assert.True(t, edit.Approved)
	assert.Equal(t, 3, edit.DisplayOrder)
	require.NotNil(t, edit.OwnerID)
	assert.Equal(t, owner, *edit.OwnerID)
	assert.Equal(t, seeded.CreatedAt, edit.CreatedAt)

	assert.ErrorIs(t, st.Shows().Update(ctx, &model.Show{ID: 999}, 1, true), repository.ErrShowNotFound)
}

func TestConcurrentApproveAndSearch(t *testing.T) {
	st := New()
	ctx := context.Background()
	var ids []uint64
	for i := 0; i < 50; i++ {
		ids = append(ids, st.Seed(model.Show{Title: "S"}).ID)
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id uint64) {
			defer wg.Done()
			_, _ = st.Shows().Approve(ctx, id)
		}(id)
		go func() {
			defer wg.Done()
			_, _, _ = st.Shows().Find(ctx, search.BuildFilter(search.Criteria{}), search.PublicView.Ordering(false), 1, 16)
		}()
	}
	wg.Wait()
	_, total, err := st.Shows().Find(ctx, search.BuildFilter(search.Criteria{}), search.PublicView.Ordering(false), 1, 16)
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)
}

func TestUsersAndTokens(t *testing.T) {
	st := New()
	ctx := context.Background()
	email := "cie@x.fr"
	u := model.User{Username: "Cie", ContactEmail: &email, Region: "Bretagne"}
	require.NoError(t, st.Users().Create(ctx, &u, "pw", bcrypt.MinCost))
	assert.ErrorIs(t, st.Users().Create(ctx, &model.User{Username: "cie"}, "pw", bcrypt.MinCost), repository.ErrUsernameExists)

	accounts, err := st.Users().AccountsWithRegion(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	created, err := st.Users().EnsureAdmin(ctx, "cie", "other", bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, created)
	got, _ := st.Users().GetByID(ctx, u.ID)
	assert.True(t, got.IsAdmin)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, st.Tokens().StoreRefresh(ctx, u.ID, "h1", exp))
	uid, err := st.Tokens().Rotate(ctx, "h1", "h2", exp)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)
	_, err = st.Tokens().Rotate(ctx, "h1", "h3", exp)
	assert.ErrorIs(t, err, repository.ErrRefreshInvalid)
}

func TestRequests(t *testing.T) {
	st := New()
	ctx := context.Background()
	pub := model.AnimationRequest{Organisation: "A"}
	priv := model.AnimationRequest{Organisation: "B", IsPrivate: true}
	require.NoError(t, st.Requests().Create(ctx, &pub))
	require.NoError(t, st.Requests().Create(ctx, &priv))

	items, total, err := st.Requests().List(ctx, false, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "A", items[0].Organisation)

	_, total, _ = st.Requests().List(ctx, true, 1, 20)
	assert.Equal(t, int64(2), total)

	require.NoError(t, st.Requests().SetPrivate(ctx, pub.ID, true))
	_, total, _ = st.Requests().List(ctx, false, 1, 20)
	assert.Zero(t, total)
	assert.ErrorIs(t, st.Requests().SetPrivate(ctx, 999, true), repository.ErrRequestNotFound)

	edit := model.AnimationRequest{ID: pub.ID, Organisation: "A bis"}
	require.NoError(t, st.Requests().Update(ctx, &edit))
	assert.Equal(t, "A bis", edit.Organisation)
	assert.True(t, edit.IsPrivate)
	assert.ErrorIs(t, st.Requests().Update(ctx, &model.AnimationRequest{ID: 999}), repository.ErrRequestNotFound)
}
