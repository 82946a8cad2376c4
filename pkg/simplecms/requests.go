package simplecms

import (
	"net/url"
	"strconv"
	"strings"
)

// Pagination defaults and bounds. Out-of-range client values fall back to
// the defaults instead of erroring.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Reserved query parameter names; everything else is treated as a field
// filter.
const (
	ParamPage      = "page"
	ParamLimit     = "limit"
	ParamSearch    = "search"
	ParamSortBy    = "sortBy"
	ParamSortOrder = "sortOrder"
)

// PageRequest is the parsed listing request for one HTTP call. Page and
// PageSize are always positive after parsing.
type PageRequest struct {
	Page      int
	PageSize  int
	Search    string
	SortBy    string
	SortOrder string // "asc" | "desc"; anything else means desc
	Filters   map[string]string
}

// Skip returns the row offset implied by the page bounds.
func (p PageRequest) Skip() int {
	return (p.Page - 1) * p.PageSize
}

// SortDesc reports whether the requested order is descending. Descending
// is the default; only an explicit "asc" flips it.
func (p PageRequest) SortDesc() bool {
	return !strings.EqualFold(p.SortOrder, "asc")
}

// ParsePageRequest reads listing parameters from a query string. The
// contract is forgiving for untrusted input: malformed or out-of-range
// numbers fall back to defaults, unknown keys become filters and are
// vetted against the descriptor later.
func ParsePageRequest(q url.Values) PageRequest {
	req := PageRequest{
		Page:      DefaultPage,
		PageSize:  DefaultPageSize,
		Search:    strings.TrimSpace(q.Get(ParamSearch)),
		SortBy:    strings.TrimSpace(q.Get(ParamSortBy)),
		SortOrder: strings.ToLower(strings.TrimSpace(q.Get(ParamSortOrder))),
		Filters:   make(map[string]string),
	}

	if v := q.Get(ParamPage); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			req.Page = n
		}
	}
	if v := q.Get(ParamLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= MaxPageSize {
			req.PageSize = n
		}
	}
	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		req.SortOrder = "desc"
	}

	for key, vals := range q {
		switch key {
		case ParamPage, ParamLimit, ParamSearch, ParamSortBy, ParamSortOrder:
			continue
		}
		if len(vals) == 0 {
			continue
		}
		if v := strings.TrimSpace(vals[0]); v != "" {
			req.Filters[key] = v
		}
	}

	return req
}

// Values re-serializes the request into query parameters, so pagination
// links can reproduce the caller's filters with only the page changed.
func (p PageRequest) Values() url.Values {
	v := url.Values{}
	v.Set(ParamPage, strconv.Itoa(p.Page))
	v.Set(ParamLimit, strconv.Itoa(p.PageSize))
	if p.Search != "" {
		v.Set(ParamSearch, p.Search)
	}
	if p.SortBy != "" {
		v.Set(ParamSortBy, p.SortBy)
	}
	if p.SortOrder != "" {
		v.Set(ParamSortOrder, p.SortOrder)
	}
	for field, val := range p.Filters {
		v.Set(field, val)
	}
	return v
}

// ReorderRequest is the ordered id list defining new 1-based positions.
type ReorderRequest struct {
	IDs []int64
}
