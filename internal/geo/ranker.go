package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/metrics"
	"github.com/iliyamo/show-directory/internal/model"
)

// DefaultRadiusKm applies when the radius is missing or not a positive number.
const DefaultRadiusKm = 20.0

// Candidates lists the shows eligible for a radius search.  textQuery, when
// non-empty, is a case-insensitive substring filter on title or description.
type Candidates interface {
	ListCandidates(ctx context.Context, textQuery string, approvedOnly bool) ([]model.Show, error)
}

// NearbyQuery is the raw input of a radius search.  Lat/Lng win over Address
// when they parse as valid coordinates.
type NearbyQuery struct {
	Lat     string
	Lng     string
	Address string
	Radius  string
	Query   string
}

// NearbyItem pairs a show with its distance from the center.  DistanceKm is
// nil when no center could be resolved.
type NearbyItem struct {
	Show       model.Show `json:"show"`
	DistanceKm *float64   `json:"distance_km"`
}

// NearbyResult is the outcome of a radius search.
type NearbyResult struct {
	Items    []NearbyItem `json:"items"`
	Center   *Point       `json:"center,omitempty"`
	RadiusKm float64      `json:"radius_km"`
}

// Ranked reports whether the items were filtered and sorted by distance.
func (r NearbyResult) Ranked() bool { return r.Center != nil }

// Ranker resolves a search center and ranks candidates by distance.
type Ranker struct {
	candidates   Candidates
	geocoder     Geocoder
	timeout      time.Duration
	approvedOnly bool
	log          *zap.Logger
}

// NewRanker builds a ranker restricted to approved shows.  geocoder may be
// nil, in which case only explicit coordinates resolve a center.
func NewRanker(candidates Candidates, geocoder Geocoder, timeout time.Duration, log *zap.Logger) *Ranker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ranker{candidates: candidates, geocoder: geocoder, timeout: timeout, approvedOnly: true, log: log}
}

// ParseRadius returns the radius in kilometres, DefaultRadiusKm when s is
// empty, unparsable or not positive.
func ParseRadius(s string) float64 {
	r, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return DefaultRadiusKm
	}
	return r
}

// Rank runs the radius search.  Geocoding problems never fail the call: the
// result is simply unranked.  Only a candidate listing failure is returned.
func (r *Ranker) Rank(ctx context.Context, q NearbyQuery) (NearbyResult, error) {
	radius := ParseRadius(q.Radius)
	center, resolved := r.center(ctx, q)

	shows, err := r.candidates.ListCandidates(ctx, strings.TrimSpace(q.Query), r.approvedOnly)
	if err != nil {
		return NearbyResult{RadiusKm: radius}, fmt.Errorf("list candidates: %w", err)
	}

	if !resolved {
		items := make([]NearbyItem, 0, len(shows))
		for _, s := range shows {
			items = append(items, NearbyItem{Show: s})
		}
		return NearbyResult{Items: items, RadiusKm: radius}, nil
	}

	items := make([]NearbyItem, 0, len(shows))
	for _, s := range shows {
		if !s.HasCoordinates() {
			continue
		}
		raw := Haversine(center, Point{Lat: *s.Latitude, Lng: *s.Longitude})
		if raw > radius {
			continue
		}
		d := roundTenth(raw)
		items = append(items, NearbyItem{Show: s, DistanceKm: &d})
	}
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := *items[i].DistanceKm, *items[j].DistanceKm
		if di != dj {
			return di < dj
		}
		return items[i].Show.ID < items[j].Show.ID
	})
	return NearbyResult{Items: items, Center: &center, RadiusKm: radius}, nil
}

func (r *Ranker) center(ctx context.Context, q NearbyQuery) (Point, bool) {
	if p, ok := ParsePoint(q.Lat, q.Lng); ok {
		metrics.GeocodeRequests.WithLabelValues("explicit").Inc()
		return p, true
	}
	address := strings.TrimSpace(q.Address)
	if address == "" || r.geocoder == nil {
		return Point{}, false
	}

	gctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	p, ok, err := r.geocoder.Resolve(gctx, address)
	switch {
	case err != nil:
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(gctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
		r.log.Warn("geocoding failed, listing unranked",
			zap.String("address", address), zap.String("outcome", outcome), zap.Error(err))
		return Point{}, false
	case !ok:
		metrics.GeocodeRequests.WithLabelValues("miss").Inc()
		return Point{}, false
	}
	metrics.GeocodeRequests.WithLabelValues("hit").Inc()
	return p, true
}
