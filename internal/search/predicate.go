package search

import (
	"strings"
	"time"

	"github.com/iliyamo/show-directory/internal/model"
)

// Field names a show column a predicate can test.
type Field string

const (
	FieldTitle        Field = "title"
	FieldDescription  Field = "description"
	FieldCategory     Field = "category"
	FieldLocation     Field = "location"
	FieldRegion       Field = "region"
	FieldAgeRange     Field = "age_range"
	FieldContactEmail Field = "contact_email"
	FieldFileMimeType Field = "file_mimetype"
	FieldDate         Field = "date"
	FieldApproved     Field = "approved"
)

// Op is the operator of a predicate node.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpContains   // case-insensitive substring
	OpEquals     // case-insensitive equality
	OpHasPrefix  // case-insensitive prefix
	OpOnOrAfter  // date >= bound
	OpOnOrBefore // date <= bound
	OpNotNull
	OpIsTrue
)

// Predicate is a lazily evaluated condition tree over show fields.  Building
// one never touches storage: the MySQL repository renders it to SQL and the
// in-memory catalog evaluates it with Match.  An And without children
// matches everything, an Or without children matches nothing.
type Predicate struct {
	op       Op
	field    Field
	value    string
	date     time.Time
	children []Predicate
}

// And matches when every child matches.
func And(children ...Predicate) Predicate { return Predicate{op: OpAnd, children: children} }

// Or matches when at least one child matches.
func Or(children ...Predicate) Predicate { return Predicate{op: OpOr, children: children} }

// Contains matches when the field contains value, ignoring case.
func Contains(f Field, value string) Predicate {
	return Predicate{op: OpContains, field: f, value: value}
}

// Equals matches when the field equals value, ignoring case.
func Equals(f Field, value string) Predicate {
	return Predicate{op: OpEquals, field: f, value: value}
}

// HasPrefix matches when the field starts with value, ignoring case.
func HasPrefix(f Field, value string) Predicate {
	return Predicate{op: OpHasPrefix, field: f, value: value}
}

// OnOrAfter matches a non-null date on or after day.
func OnOrAfter(f Field, day time.Time) Predicate {
	return Predicate{op: OpOnOrAfter, field: f, date: day}
}

// OnOrBefore matches a non-null date on or before day.
func OnOrBefore(f Field, day time.Time) Predicate {
	return Predicate{op: OpOnOrBefore, field: f, date: day}
}

// NotNull matches when the field holds a value.
func NotNull(f Field) Predicate { return Predicate{op: OpNotNull, field: f} }

// IsTrue matches a boolean field set to true.
func IsTrue(f Field) Predicate { return Predicate{op: OpIsTrue, field: f} }

func (p Predicate) Op() Op                { return p.op }
func (p Predicate) Field() Field          { return p.field }
func (p Predicate) Value() string         { return p.value }
func (p Predicate) Date() time.Time       { return p.date }
func (p Predicate) Children() []Predicate { return p.children }

// Match evaluates the predicate against a single show.  Null columns never
// satisfy a text or date comparison, the same way SQL LIKE on NULL does not.
func (p Predicate) Match(s model.Show) bool {
	switch p.op {
	case OpAnd:
		for _, c := range p.children {
			if !c.Match(s) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range p.children {
			if c.Match(s) {
				return true
			}
		}
		return false
	case OpContains, OpEquals, OpHasPrefix:
		v, ok := textField(s, p.field)
		if !ok {
			return false
		}
		v, want := strings.ToLower(v), strings.ToLower(p.value)
		switch p.op {
		case OpContains:
			return strings.Contains(v, want)
		case OpEquals:
			return v == want
		default:
			return strings.HasPrefix(v, want)
		}
	case OpOnOrAfter, OpOnOrBefore:
		if p.field != FieldDate || s.Date == nil {
			return false
		}
		d, bound := day(*s.Date), day(p.date)
		if p.op == OpOnOrAfter {
			return !d.Before(bound)
		}
		return !d.After(bound)
	case OpNotNull:
		switch p.field {
		case FieldDate:
			return s.Date != nil
		case FieldContactEmail:
			return s.ContactEmail != nil
		}
		_, ok := textField(s, p.field)
		return ok
	case OpIsTrue:
		return p.field == FieldApproved && s.Approved
	}
	return false
}

func textField(s model.Show, f Field) (string, bool) {
	switch f {
	case FieldTitle:
		return s.Title, true
	case FieldDescription:
		return s.Description, true
	case FieldCategory:
		return s.Category, true
	case FieldLocation:
		return s.Location, true
	case FieldRegion:
		return s.Region, true
	case FieldAgeRange:
		return s.AgeRange, true
	case FieldFileMimeType:
		return s.FileMimeType, true
	case FieldContactEmail:
		if s.ContactEmail == nil {
			return "", false
		}
		return *s.ContactEmail, true
	}
	return "", false
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
