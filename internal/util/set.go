package util

import (
	"sort"
	"strings"
)

// StringSet is a map[string]bool with methods added for set-like usage:
// building up a set of referenced names and testing membership.
type StringSet map[string]bool

// NewStringSet returns an empty StringSet.
func NewStringSet() StringSet {
	return StringSet{}
}

// Add adds value to the set. If it is already present, no effect occurs.
func (s StringSet) Add(value string) {
	s[value] = true
}

// Has returns whether value is in the set.
func (s StringSet) Has(value string) bool {
	_, has := s[value]
	return has
}

// Len returns the number of elements in the set.
func (s StringSet) Len() int {
	return len(s)
}

// Elements returns the set's members as a slice. No particular order is
// guaranteed.
func (s StringSet) Elements() []string {
	if s == nil {
		return nil
	}
	sl := make([]string, 0, len(s))
	for item := range s {
		sl = append(sl, item)
	}
	return sl
}

// String shows the contents of the set, alphabetized for stable output.
func (s StringSet) String() string {
	convs := make([]string, 0, len(s))
	for k := range s {
		convs = append(convs, k)
	}
	sort.Strings(convs)

	var sb strings.Builder
	sb.WriteRune('{')
	sb.WriteString(strings.Join(convs, ", "))
	sb.WriteRune('}')
	return sb.String()
}
