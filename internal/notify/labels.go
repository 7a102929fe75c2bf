package notify

import "strings"

// CategoryMatcher decides whether a show category matches any target label.
type CategoryMatcher interface {
	MatchCategory(category string, targets []string) bool
}

// RegionMatcher decides whether a region matches any target label.
type RegionMatcher interface {
	MatchRegion(region string, targets []string) bool
}

// SubstringMatcher matches when a target label is a case-insensitive
// substring of the value.  Categories are free text ("Clown, Enfant") so
// no tokenizing is attempted.
type SubstringMatcher struct{}

func (SubstringMatcher) MatchCategory(category string, targets []string) bool {
	return containsAny(category, targets)
}

func (SubstringMatcher) MatchRegion(region string, targets []string) bool {
	return containsAny(region, targets)
}

func containsAny(value string, targets []string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	for _, t := range targets {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && strings.Contains(v, t) {
			return true
		}
	}
	return false
}

// cleanLabels trims labels and drops empty and repeated ones.
func cleanLabels(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, l := range in {
		l = strings.TrimSpace(l)
		k := strings.ToLower(l)
		if l == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, l)
	}
	return out
}

// SplitLabels splits a comma separated form value into labels.
func SplitLabels(s string) []string {
	return cleanLabels(strings.Split(s, ","))
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
