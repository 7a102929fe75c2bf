package search

import (
	"sort"
	"strings"

	"github.com/iliyamo/show-directory/internal/model"
)

// Direction of the creation-time tie-break.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// ParseDirection reads "asc" or "desc", ignoring case.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return Ascending, true
	case "desc":
		return Descending, true
	}
	return Ascending, false
}

// Category buckets, ascending bucket sorts first.
const (
	BucketFeatured = 0
	BucketChildren = 1
	BucketOther    = 2
	BucketWorkshop = 3
)

// BucketMarkers are the category substrings that select a bucket.  They are
// tested in the order featured, children, workshop.
type BucketMarkers struct {
	Featured string
	Children string
	Workshop string
}

// DefaultMarkers match the category labels used by the directory.
var DefaultMarkers = BucketMarkers{Featured: "vedette", Children: "enfant", Workshop: "atelier"}

// Bucket returns the ordering bucket of a category.
func (m BucketMarkers) Bucket(category string) int {
	c := strings.ToLower(category)
	switch {
	case m.Featured != "" && strings.Contains(c, strings.ToLower(m.Featured)):
		return BucketFeatured
	case m.Children != "" && strings.Contains(c, strings.ToLower(m.Children)):
		return BucketChildren
	case m.Workshop != "" && strings.Contains(c, strings.ToLower(m.Workshop)):
		return BucketWorkshop
	default:
		return BucketOther
	}
}

// Ordering sorts shows: approved first (only meaningful when unapproved
// shows are visible), then category bucket, display order ascending,
// creation time in the configured direction and finally ID ascending.
type Ordering struct {
	ApprovedFirst bool
	Markers       BucketMarkers
	Created       Direction
}

// Less reports whether a sorts before b.
func (o Ordering) Less(a, b model.Show) bool {
	if o.ApprovedFirst && a.Approved != b.Approved {
		return a.Approved
	}
	if ba, bb := o.Markers.Bucket(a.Category), o.Markers.Bucket(b.Category); ba != bb {
		return ba < bb
	}
	if a.DisplayOrder != b.DisplayOrder {
		return a.DisplayOrder < b.DisplayOrder
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if o.Created == Descending {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Sort orders shows in place.
func (o Ordering) Sort(shows []model.Show) {
	sort.SliceStable(shows, func(i, j int) bool { return o.Less(shows[i], shows[j]) })
}
