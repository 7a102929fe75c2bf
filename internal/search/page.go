package search

// View fixes the page size and creation-time direction of one listing.
type View struct {
	Name     string
	PageSize int
	Created  Direction
}

// Listing views.  Both list newest shows first inside a bucket.
var (
	PublicView = View{Name: "public", PageSize: 16, Created: Descending}
	AdminView  = View{Name: "admin", PageSize: 24, Created: Descending}
)

// Ordering returns the ordering used by this view.
func (v View) Ordering(admin bool) Ordering {
	return Ordering{ApprovedFirst: admin, Markers: DefaultMarkers, Created: v.Created}
}

// NormalizePage clamps a 1-indexed page number.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Offset returns the number of rows skipped before page.
func Offset(page, size int) int {
	return (NormalizePage(page) - 1) * size
}

// PageCount returns the number of pages needed for total items.
func PageCount(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// Paginate returns the page of items; a page past the end is empty.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		return []T{}
	}
	start := Offset(page, size)
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
