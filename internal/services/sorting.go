package services

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort keys accepted by the table views.
const (
	SortByNIF       = "nif"
	SortByName      = "name"
	SortByEntity    = "entity"
	SortByClasses   = "classes"
	SortByValue     = "value"
	SortByVariation = "variation"
)

// SortState is the column and direction of a sortable table. It travels
// with each request instead of living in the server.
type SortState struct {
	Key  string
	Desc bool
}

// Toggle returns the state after clicking column key: the same column flips
// direction, another column starts ascending.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key {
		return SortState{Key: key, Desc: !s.Desc}
	}
	return SortState{Key: key}
}

// Dir returns "asc" or "desc".
func (s SortState) Dir() string {
	if s.Desc {
		return "desc"
	}
	return "asc"
}

// ParseSortState reads a key and direction, falling back to def when key is
// not one of allowed.
func ParseSortState(key, dir string, def SortState, allowed ...string) SortState {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, a := range allowed {
		if key == a {
			return SortState{Key: key, Desc: strings.EqualFold(strings.TrimSpace(dir), "desc")}
		}
	}
	return def
}

// newPTCollator compares strings the way Portuguese readers expect
// ("Álvaro" next to "Alberto"). Collators are not safe for concurrent use.
func newPTCollator() *collate.Collator {
	return collate.New(language.Portuguese, collate.IgnoreCase)
}

// directed applies the sort direction to a three-way comparison.
func directed(cmp int, desc bool) bool {
	if desc {
		return cmp > 0
	}
	return cmp < 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
