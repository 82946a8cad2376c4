package simplecms

import (
	"net/url"
	"strconv"
)

// PageMeta is the page arithmetic returned alongside a page of rows.
type PageMeta struct {
	Page            int   `json:"page"`
	PageSize        int   `json:"page_size"`
	TotalItems      int64 `json:"total_items"`
	TotalPages      int   `json:"total_pages"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
}

// PageLinks are the navigation links of the envelope. Next and Prev are
// omitted when there is no such page.
type PageLinks struct {
	Self  string  `json:"self"`
	First string  `json:"first"`
	Last  string  `json:"last"`
	Next  *string `json:"next,omitempty"`
	Prev  *string `json:"prev,omitempty"`
}

// BuildEnvelope computes page bounds and navigation links from the request
// and the total row count. Pure; the links re-serialize the caller's own
// filter and sort parameters with only the page number changed.
func BuildEnvelope(basePath string, req PageRequest, totalItems int64) (PageMeta, PageLinks) {
	totalPages := 0
	if totalItems > 0 {
		totalPages = int((totalItems + int64(req.PageSize) - 1) / int64(req.PageSize))
	}

	meta := PageMeta{
		Page:            req.Page,
		PageSize:        req.PageSize,
		TotalItems:      totalItems,
		TotalPages:      totalPages,
		HasNextPage:     req.Page < totalPages,
		HasPreviousPage: req.Page > 1,
	}

	lastPage := totalPages
	if lastPage < 1 {
		lastPage = 1
	}

	links := PageLinks{
		Self:  pageLink(basePath, req, req.Page),
		First: pageLink(basePath, req, 1),
		Last:  pageLink(basePath, req, lastPage),
	}
	if meta.HasNextPage {
		next := pageLink(basePath, req, req.Page+1)
		links.Next = &next
	}
	if meta.HasPreviousPage {
		prev := pageLink(basePath, req, req.Page-1)
		links.Prev = &prev
	}

	return meta, links
}

func pageLink(basePath string, req PageRequest, page int) string {
	v := req.Values()
	v.Set(ParamPage, strconv.Itoa(page))
	u := url.URL{Path: basePath, RawQuery: v.Encode()}
	return u.String()
}
