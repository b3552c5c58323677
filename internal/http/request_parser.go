// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Every view reads the same year, sort and dir query parameters; the helpers
// here parse them once with the same fallbacks.

package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"recibos/internal/services"
)

// Year bounds accepted from query strings.
const (
	minYear = 1900
	maxYear = 9999
)

// ViewParams holds the query parameters shared by pages and partials.
type ViewParams struct {
	Year    int
	HasYear bool
	Sort    string
	Dir     string
	Compare int // classes view only; 0 means not given
}

// ParseViewParams extracts year, sort, dir and compare from query values.
// Invalid numbers are ignored rather than rejected.
func ParseViewParams(query url.Values) ViewParams {
	var p ViewParams
	if y, ok := parseYear(query.Get("year")); ok {
		p.Year, p.HasYear = y, true
	}
	if c, ok := parseYear(query.Get("compare")); ok {
		p.Compare = c
	}
	p.Sort = strings.ToLower(sanitizeInput(query.Get("sort")))
	p.Dir = strings.ToLower(sanitizeInput(query.Get("dir")))
	return p
}

// SortState resolves the sort parameters against the keys a view allows.
func (p ViewParams) SortState(def services.SortState, allowed ...string) services.SortState {
	return services.ParseSortState(p.Sort, p.Dir, def, allowed...)
}

func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < minYear || y > maxYear {
		return 0, false
	}
	return y, true
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET accepts GET and HEAD.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
