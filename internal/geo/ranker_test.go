package geo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/show-directory/internal/model"
)

type listCandidates struct {
	shows        []model.Show
	err          error
	approvedOnly bool
}

func (l *listCandidates) ListCandidates(_ context.Context, textQuery string, approvedOnly bool) ([]model.Show, error) {
	l.approvedOnly = approvedOnly
	if l.err != nil {
		return nil, l.err
	}
	q := strings.ToLower(textQuery)
	var out []model.Show
	for _, s := range l.shows {
		if approvedOnly && !s.Approved {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(s.Title), q) && !strings.Contains(strings.ToLower(s.Description), q) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type stubGeocoder struct {
	p     Point
	ok    bool
	err   error
	delay time.Duration
	calls int
}

func (g *stubGeocoder) Resolve(ctx context.Context, _ string) (Point, bool, error) {
	g.calls++
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return Point{}, false, ctx.Err()
		}
	}
	return g.p, g.ok, g.err
}

func f(v float64) *float64 { return &v }

func catalog() []model.Show {
	return []model.Show{
		{ID: 1, Title: "Cirque de Paris", Approved: true, Latitude: f(48.86), Longitude: f(2.34)},
		{ID: 2, Title: "Marionnettes lyonnaises", Approved: true, Latitude: f(45.75), Longitude: f(4.85)},
		{ID: 3, Title: "Clown sans adresse", Approved: true},
		{ID: 4, Title: "Magie", Approved: true, Latitude: f(48.85), Longitude: f(2.35)},
		{ID: 5, Title: "En attente", Latitude: f(48.85), Longitude: f(2.35)},
	}
}

func TestRank_ExplicitCenterExcludesFarAway(t *testing.T) {
	r := NewRanker(&listCandidates{shows: catalog()}, nil, 0, nil)

	res, err := r.Rank(context.Background(), NearbyQuery{Lat: "48.85", Lng: "2.35", Radius: "5"})
	require.NoError(t, err)
	require.True(t, res.Ranked())
	assert.Equal(t, 5.0, res.RadiusKm)

	var ids []uint64
	for _, it := range res.Items {
		ids = append(ids, it.Show.ID)
		require.NotNil(t, it.DistanceKm)
		assert.LessOrEqual(t, *it.DistanceKm, 5.0)
		assert.True(t, it.Show.HasCoordinates())
	}
	assert.Equal(t, []uint64{4, 1}, ids, "Lyon, the show without coordinates and the unapproved show are excluded")
	assert.Equal(t, 0.0, *res.Items[0].DistanceKm)
}

func TestRank_RadiusComparesUnroundedDistance(t *testing.T) {
	// one degree of latitude is 111.195 km with R = 6371
	shows := []model.Show{
		{ID: 1, Title: "Juste dehors", Approved: true, Latitude: f(48.85 + 5.04/111.195), Longitude: f(2.35)},
		{ID: 2, Title: "Juste dedans", Approved: true, Latitude: f(48.85 + 4.96/111.195), Longitude: f(2.35)},
	}
	r := NewRanker(&listCandidates{shows: shows}, nil, 0, nil)

	res, err := r.Rank(context.Background(), NearbyQuery{Lat: "48.85", Lng: "2.35", Radius: "5"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1, "5.04 km is outside a 5 km radius even though it displays as 5.0")
	assert.Equal(t, uint64(2), res.Items[0].Show.ID)
	assert.Equal(t, 5.0, *res.Items[0].DistanceKm)
}

func TestRank_TiesBrokenByID(t *testing.T) {
	shows := []model.Show{
		{ID: 9, Approved: true, Latitude: f(48.9), Longitude: f(2.35)},
		{ID: 3, Approved: true, Latitude: f(48.9), Longitude: f(2.35)},
	}
	r := NewRanker(&listCandidates{shows: shows}, nil, 0, nil)
	res, err := r.Rank(context.Background(), NearbyQuery{Lat: "48.85", Lng: "2.35"})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, uint64(3), res.Items[0].Show.ID)
	assert.Equal(t, DefaultRadiusKm, res.RadiusKm)
}

func TestRank_GeocodedAddress(t *testing.T) {
	g := &stubGeocoder{p: Point{Lat: 45.76, Lng: 4.84}, ok: true}
	r := NewRanker(&listCandidates{shows: catalog()}, g, time.Second, nil)

	res, err := r.Rank(context.Background(), NearbyQuery{Address: "Lyon", Radius: "10"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, uint64(2), res.Items[0].Show.ID)
	assert.Equal(t, 1, g.calls)
}

func TestRank_ExplicitCoordinatesSkipGeocoder(t *testing.T) {
	g := &stubGeocoder{p: Point{Lat: 45.76, Lng: 4.84}, ok: true}
	r := NewRanker(&listCandidates{shows: catalog()}, g, time.Second, nil)

	_, err := r.Rank(context.Background(), NearbyQuery{Lat: "48.85", Lng: "2.35", Address: "Lyon"})
	require.NoError(t, err)
	assert.Equal(t, 0, g.calls)
}

func TestRank_UnresolvedCenterListsAllCandidates(t *testing.T) {
	cases := map[string]*stubGeocoder{
		"no match": {ok: false},
		"error":    {err: errors.New("upstream 502")},
		"timeout":  {ok: true, delay: time.Second},
	}
	for name, g := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRanker(&listCandidates{shows: catalog()}, g, 20*time.Millisecond, nil)
			res, err := r.Rank(context.Background(), NearbyQuery{Address: "nulle part", Radius: "1"})
			require.NoError(t, err)
			assert.False(t, res.Ranked())
			require.Len(t, res.Items, 4)
			for i, it := range res.Items {
				assert.Nil(t, it.DistanceKm)
				assert.Equal(t, catalog()[i].ID, it.Show.ID, "natural order is kept")
			}
		})
	}
}

func TestRank_TextPreFilterAndApprovedPolicy(t *testing.T) {
	lc := &listCandidates{shows: catalog()}
	r := NewRanker(lc, nil, 0, nil)

	res, err := r.Rank(context.Background(), NearbyQuery{Query: "  cirque "})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, uint64(1), res.Items[0].Show.ID)
	assert.True(t, lc.approvedOnly)
}

func TestRank_CandidateFailure(t *testing.T) {
	r := NewRanker(&listCandidates{err: errors.New("db down")}, nil, 0, nil)
	_, err := r.Rank(context.Background(), NearbyQuery{})
	assert.Error(t, err)
}

func TestParseRadius(t *testing.T) {
	assert.Equal(t, DefaultRadiusKm, ParseRadius(""))
	assert.Equal(t, DefaultRadiusKm, ParseRadius("abc"))
	assert.Equal(t, DefaultRadiusKm, ParseRadius("-3"))
	assert.Equal(t, DefaultRadiusKm, ParseRadius("0"))
	assert.Equal(t, 7.5, ParseRadius(" 7.5 "))
}
