package repository

import (
	"fmt"
	"strings"

	"github.com/iliyamo/show-directory/internal/search"
)

// showColumns maps predicate fields to columns of the shows table.
var showColumns = map[search.Field]string{
	search.FieldTitle:        "s.title",
	search.FieldDescription:  "s.description",
	search.FieldCategory:     "s.category",
	search.FieldLocation:     "s.location",
	search.FieldRegion:       "s.region",
	search.FieldAgeRange:     "s.age_range",
	search.FieldContactEmail: "s.contact_email",
	search.FieldFileMimeType: "s.file_mimetype",
	search.FieldDate:         "s.date",
	search.FieldApproved:     "s.approved",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeArg escapes LIKE wildcards so user input matches literally.
func likeArg(v string) string {
	return likeEscaper.Replace(strings.ToLower(v))
}

// renderWhere turns a predicate tree into a parenthesised SQL condition
// and its positional arguments.  Text comparisons lower-case both sides,
// matching the in-memory evaluation.
func renderWhere(p search.Predicate) (string, []any, error) {
	var args []any
	cond, err := render(p, &args)
	if err != nil {
		return "", nil, err
	}
	return cond, args, nil
}

func render(p search.Predicate, args *[]any) (string, error) {
	switch p.Op() {
	case search.OpAnd, search.OpOr:
		children := p.Children()
		if len(children) == 0 {
			if p.Op() == search.OpAnd {
				return "1=1", nil
			}
			return "1=0", nil
		}
		parts := make([]string, 0, len(children))
		for _, c := range children {
			s, err := render(c, args)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		sep := " AND "
		if p.Op() == search.OpOr {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	}

	col, ok := showColumns[p.Field()]
	if !ok {
		return "", fmt.Errorf("predicate on unknown field %q", p.Field())
	}
	switch p.Op() {
	case search.OpContains:
		*args = append(*args, "%"+likeArg(p.Value())+"%")
		return "LOWER(" + col + ") LIKE ?", nil
	case search.OpHasPrefix:
		*args = append(*args, likeArg(p.Value())+"%")
		return "LOWER(" + col + ") LIKE ?", nil
	case search.OpEquals:
		*args = append(*args, strings.ToLower(p.Value()))
		return "LOWER(" + col + ") = ?", nil
	case search.OpOnOrAfter:
		*args = append(*args, p.Date().Format("2006-01-02"))
		return col + " >= ?", nil
	case search.OpOnOrBefore:
		*args = append(*args, p.Date().Format("2006-01-02"))
		return col + " <= ?", nil
	case search.OpNotNull:
		return col + " IS NOT NULL", nil
	case search.OpIsTrue:
		return col + " = TRUE", nil
	}
	return "", fmt.Errorf("unsupported predicate op %d", p.Op())
}

// renderOrder renders an ordering as an ORDER BY clause (without the
// keywords).  The bucket CASE mirrors search.BucketMarkers.Bucket.
func renderOrder(o search.Ordering) (string, []any) {
	var (
		parts []string
		args  []any
	)
	if o.ApprovedFirst {
		parts = append(parts, "s.approved DESC")
	}

	var whens []string
	for _, m := range []struct {
		marker string
		bucket int
	}{
		{o.Markers.Featured, search.BucketFeatured},
		{o.Markers.Children, search.BucketChildren},
		{o.Markers.Workshop, search.BucketWorkshop},
	} {
		if m.marker == "" {
			continue
		}
		whens = append(whens, fmt.Sprintf("WHEN LOWER(s.category) LIKE ? THEN %d", m.bucket))
		args = append(args, "%"+likeArg(m.marker)+"%")
	}
	if len(whens) > 0 {
		parts = append(parts, fmt.Sprintf("CASE %s ELSE %d END ASC", strings.Join(whens, " "), search.BucketOther))
	}

	dir := "ASC"
	if o.Created == search.Descending {
		dir = "DESC"
	}
	parts = append(parts, "s.display_order ASC", "s.created_at "+dir, "s.id ASC")
	return strings.Join(parts, ", "), args
}
