package search

import (
	"strings"
	"unicode"
)

// ageSeparators are the spellings found between the two bounds of a stored
// age range.  Order matters: multi-character separators are replaced first.
var ageSeparators = []string{" - ", "-", "—", "–", "à", "a", "/", " "}

// ageJoiners re-spell a canonical "6/10" the way submitters type it, so a
// compact query still reaches "6 à 10 ans".
var ageJoiners = []string{" à ", " a ", " - ", " / "}

// AgeVariants expands a raw query into the age-range spellings worth matching
// against the free text age_range and description columns.  A query without
// any digit is returned unchanged as a singleton.  The original (trimmed)
// query is always the first element and the result never contains duplicates
// or empty strings, except for the singleton of an empty query.
func AgeVariants(query string) []string {
	q := strings.TrimSpace(query)
	if !hasDigit(q) {
		return []string{q}
	}

	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ToLower(q), "ans", ""))
	canonical := canonicalAge(cleaned)

	candidates := []string{
		q,
		cleaned,
		strings.ReplaceAll(cleaned, " ", ""),
		strings.ReplaceAll(cleaned, "-", "/"),
		strings.ReplaceAll(cleaned, "/", "-"),
		strings.ReplaceAll(cleaned, " ", "-"),
		strings.ReplaceAll(cleaned, " ", "/"),
		canonical,
		strings.ReplaceAll(canonical, "/", "-"),
		strings.ReplaceAll(canonical, "/", ""),
	}
	for _, j := range ageJoiners {
		candidates = append(candidates, strings.ReplaceAll(canonical, "/", j))
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, v := range candidates {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// canonicalAge rewrites every separator to a single "/" ("6 à 10" -> "6/10").
func canonicalAge(cleaned string) string {
	norm := cleaned
	for _, sep := range ageSeparators {
		norm = strings.ReplaceAll(norm, sep, "/")
	}
	for strings.Contains(norm, "//") {
		norm = strings.ReplaceAll(norm, "//", "/")
	}
	return strings.Trim(norm, "/")
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
