package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/show-directory/internal/model"
)

type fakeDirectory struct {
	shows    []model.Show
	accounts []model.User
	err      error
}

func (d *fakeDirectory) ListApprovedByCategories(_ context.Context, categories []string) ([]model.Show, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []model.Show
	for _, s := range d.shows {
		if s.Approved && containsAny(s.Category, categories) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (d *fakeDirectory) AccountsByIDs(_ context.Context, ids []uint64) (map[uint64]model.User, error) {
	out := map[uint64]model.User{}
	for _, id := range ids {
		for _, a := range d.accounts {
			if a.ID == id {
				out[id] = a
			}
		}
	}
	return out, nil
}

func (d *fakeDirectory) AccountsWithRegion(context.Context) ([]model.User, error) {
	var out []model.User
	for _, a := range d.accounts {
		if strings.TrimSpace(a.Region) != "" && a.Email() != "" {
			out = append(out, a)
		}
	}
	return out, nil
}

func sp(s string) *string { return &s }
func up(v uint64) *uint64 { return &v }

func TestMatch_RequiresCategory(t *testing.T) {
	m := NewMatcher(&fakeDirectory{}, nil)
	_, err := m.Match(context.Background(), Target{Categories: []string{" ", ""}})
	assert.ErrorIs(t, err, ErrNoCategories)
}

func TestMatch_OwnerRegionKeepsShowWithoutRegion(t *testing.T) {
	dir := &fakeDirectory{
		accounts: []model.User{{ID: 7, Region: "Bretagne — Rennes", ContactEmail: sp("cie@rennes.fr")}},
		shows: []model.Show{
			{ID: 1, Category: "Clown", Approved: true, OwnerID: up(7)},
			{ID: 2, Category: "Clown", Approved: true, Region: "Occitanie", ContactEmail: sp("sud@clown.fr")},
			{ID: 3, Category: "Clown", Approved: true, ContactEmail: sp("nowhere@clown.fr")},
		},
	}
	plan, err := NewMatcher(dir, nil).Match(context.Background(), Target{
		Categories: []string{"clown"},
		Regions:    []string{"Bretagne"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cie@rennes.fr"}, plan.Emails())
	assert.Equal(t, 1, plan.MatchedShows)
	assert.Equal(t, SourceOwner, plan.Recipients[0].Source)
}

func TestMatch_DeduplicatesAcrossShowsAndAccounts(t *testing.T) {
	dir := &fakeDirectory{
		accounts: []model.User{
			{ID: 1, Region: "Bretagne", ContactEmail: sp(" Contact@Cie.fr ")},
			{ID: 2, Region: "Bretagne", ContactEmail: sp("autre@cie.fr")},
			{ID: 3, Region: "Normandie", ContactEmail: sp("nord@cie.fr")},
		},
		shows: []model.Show{
			{ID: 10, Category: "Magie", Region: "Bretagne", Approved: true, ContactEmail: sp("contact@cie.fr")},
			{ID: 11, Category: "Magie, Enfant", Region: "Bretagne", Approved: true, ContactEmail: sp("CONTACT@cie.fr")},
			{ID: 12, Category: "Magie", Region: "Bretagne", Approved: true, OwnerID: up(1)},
		},
	}
	plan, err := NewMatcher(dir, nil).Match(context.Background(), Target{
		Categories: []string{"magie"},
		Regions:    []string{"bretagne"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"contact@cie.fr", "autre@cie.fr"}, plan.Emails())
	assert.Equal(t, 3, plan.MatchedShows)
	assert.Equal(t, 2, plan.MatchedAccounts)
}

func TestMatch_WithoutRegionsIgnoresAccountPath(t *testing.T) {
	dir := &fakeDirectory{
		accounts: []model.User{
			{ID: 1, Username: "owner@cie.fr"},
			{ID: 2, Region: "Bretagne", ContactEmail: sp("bzh@cie.fr")},
		},
		shows: []model.Show{
			{ID: 1, Category: "Clown, Enfant", Approved: true, OwnerID: up(1)},
			{ID: 2, Category: "Clown", Approved: false, ContactEmail: sp("pending@cie.fr")},
			{ID: 3, Category: "Théâtre", Approved: true, ContactEmail: sp("theatre@cie.fr")},
			{ID: 4, Category: "Clown", Approved: true},
		},
	}
	plan, err := NewMatcher(dir, nil).Match(context.Background(), Target{Categories: []string{"CLOWN"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@cie.fr"}, plan.Emails(), "login address is the owner fallback")
	assert.Equal(t, 2, plan.MatchedShows)
	assert.Zero(t, plan.MatchedAccounts)
}

func TestMatch_NothingMatchesIsNotAnError(t *testing.T) {
	plan, err := NewMatcher(&fakeDirectory{}, nil).Match(context.Background(), Target{
		Categories: []string{"jonglage"},
		Regions:    []string{"Corse"},
	})
	require.NoError(t, err)
	assert.Empty(t, plan.Recipients)
}

func TestMatch_StorageFailure(t *testing.T) {
	_, err := NewMatcher(&fakeDirectory{err: errors.New("db down")}, nil).Match(context.Background(), Target{Categories: []string{"x"}})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCategories)
}

type exactMatcher struct{}

func (exactMatcher) MatchCategory(c string, targets []string) bool {
	for _, t := range targets {
		if strings.EqualFold(c, t) {
			return true
		}
	}
	return false
}

func TestMatch_CustomCategoryMatcher(t *testing.T) {
	dir := &fakeDirectory{shows: []model.Show{
		{ID: 1, Category: "Clown", Approved: true, ContactEmail: sp("a@x.fr")},
		{ID: 2, Category: "Clown, Enfant", Approved: true, ContactEmail: sp("b@x.fr")},
	}}
	m := NewMatcher(dir, nil).WithMatchers(exactMatcher{}, nil)
	plan, err := m.Match(context.Background(), Target{Categories: []string{"clown"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.fr"}, plan.Emails())
}

func TestSplitLabels(t *testing.T) {
	assert.Equal(t, []string{"Clown", "Magie"}, SplitLabels(" Clown, ,Magie,clown"))
	assert.Empty(t, SplitLabels(""))
}
