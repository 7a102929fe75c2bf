package search

import (
	"strings"
	"time"
)

// FileType restricts results by the MIME type of the stored attachment.
type FileType string

const (
	FileAny   FileType = "any"
	FileImage FileType = "image"
	FilePDF   FileType = "pdf"
)

// ParseFileType maps a query parameter to a FileType; unknown values mean any.
func ParseFileType(s string) FileType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image":
		return FileImage
	case "pdf":
		return FilePDF
	default:
		return FileAny
	}
}

// Criteria is what a visitor (or an administrator) typed in the search form.
// DateFrom and DateTo are YYYY-MM-DD strings; malformed values are ignored.
type Criteria struct {
	Query    string
	Category string
	Location string
	FileType FileType
	DateFrom string
	DateTo   string
	Admin    bool
	Sort     string // "asc" or "desc" on creation time; empty keeps the view default
	Page     int
}

const dateLayout = "2006-01-02"

// BuildFilter composes the full predicate for a search.  It does not run any
// query so the caller can still order and paginate.
func BuildFilter(c Criteria) Predicate {
	var must []Predicate

	if !c.Admin {
		must = append(must, IsTrue(FieldApproved))
	}

	if q := strings.TrimSpace(c.Query); q != "" {
		anyOf := []Predicate{
			Contains(FieldTitle, q),
			Contains(FieldDescription, q),
			Contains(FieldLocation, q),
			Contains(FieldCategory, q),
			Contains(FieldContactEmail, q),
		}
		for _, v := range AgeVariants(q) {
			anyOf = append(anyOf, Contains(FieldAgeRange, v), Contains(FieldDescription, v))
		}
		must = append(must, Or(anyOf...))
	}

	if cat := strings.TrimSpace(c.Category); cat != "" {
		must = append(must, Contains(FieldCategory, cat))
	}

	if loc := strings.TrimSpace(c.Location); loc != "" {
		must = append(must, Or(Contains(FieldLocation, loc), Contains(FieldRegion, loc)))
	}

	switch c.FileType {
	case FileImage:
		must = append(must, HasPrefix(FieldFileMimeType, "image/"))
	case FilePDF:
		must = append(must, Equals(FieldFileMimeType, "application/pdf"))
	}

	from, hasFrom := parseDay(c.DateFrom)
	to, hasTo := parseDay(c.DateTo)
	if hasFrom || hasTo {
		must = append(must, NotNull(FieldDate))
	}
	if hasFrom {
		must = append(must, OnOrAfter(FieldDate, from))
	}
	if hasTo {
		must = append(must, OnOrBefore(FieldDate, to))
	}

	return And(must...)
}

func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
