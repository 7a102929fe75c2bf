package search

import (
	"errors"
	"sort"
)

// ErrUnknownCollection is returned for a collection slug that is not defined.
var ErrUnknownCollection = errors.New("unknown collection")

// Collection is a themed landing listing: a fixed predicate over approved
// shows, e.g. every clown act or every Christmas show.
type Collection struct {
	Slug  string    `json:"slug"`
	Title string    `json:"title"`
	Where Predicate `json:"-"`
}

func themed(slug, title string, anyOf ...Predicate) Collection {
	return Collection{Slug: slug, Title: title, Where: And(IsTrue(FieldApproved), Or(anyOf...))}
}

var collections = map[string]Collection{}

func init() {
	for _, c := range []Collection{
		themed("enfants", "Spectacles enfants",
			Contains(FieldCategory, "enfant"),
			Contains(FieldCategory, "jeune public"),
			Contains(FieldCategory, "famille"),
			Contains(FieldAgeRange, "ans")),
		themed("animations", "Animations enfants",
			Contains(FieldCategory, "animation"),
			Contains(FieldCategory, "atelier"),
			Contains(FieldCategory, "jeu"),
			Contains(FieldTitle, "animation")),
		themed("noel", "Spectacles de Noël",
			Contains(FieldTitle, "noël"), Contains(FieldTitle, "noel"),
			Contains(FieldDescription, "noël"), Contains(FieldDescription, "noel"),
			Contains(FieldCategory, "noël"), Contains(FieldCategory, "noel")),
		themed("entreprises", "Animations entreprises",
			Contains(FieldCategory, "entreprise"),
			Contains(FieldCategory, "corporate"),
			Contains(FieldCategory, "cse"),
			Contains(FieldDescription, "entreprise"),
			Contains(FieldDescription, "corporate")),
		themed("marionnettes", "Marionnettes",
			Contains(FieldCategory, "marionnette"),
			Contains(FieldTitle, "marionnette"),
			Contains(FieldDescription, "marionnette")),
		themed("magiciens", "Magiciens",
			Contains(FieldCategory, "magie"), Contains(FieldCategory, "magicien"),
			Contains(FieldTitle, "magie"), Contains(FieldTitle, "magicien")),
		themed("clowns", "Clowns",
			Contains(FieldCategory, "clown"),
			Contains(FieldTitle, "clown"),
			Contains(FieldDescription, "clown")),
		themed("anniversaire", "Animations anniversaire",
			Contains(FieldCategory, "anniversaire"),
			Contains(FieldTitle, "anniversaire"),
			Contains(FieldDescription, "anniversaire"),
			Contains(FieldCategory, "enfant"),
			Contains(FieldCategory, "animation")),
	} {
		collections[c.Slug] = c
	}
}

// LookupCollection returns the collection registered under slug.
func LookupCollection(slug string) (Collection, bool) {
	c, ok := collections[slug]
	return c, ok
}

// Collections lists every collection sorted by slug.
func Collections() []Collection {
	out := make([]Collection, 0, len(collections))
	for _, c := range collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
