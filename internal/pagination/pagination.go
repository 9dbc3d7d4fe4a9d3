// Package pagination parses page/limit query parameters and builds the
// metadata returned with paged lists.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a 1-based page request.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Meta struct {
	CurrentPage  int  `json:"current_page"`
	PerPage      int  `json:"per_page"`
	TotalPages   int  `json:"total_pages"`
	TotalRecords int  `json:"total_records"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

// ParseParams reads ?page= and ?limit=. Missing or malformed values fall back
// to the defaults and limit is capped at MaxLimit.
func ParseParams(r *http.Request) Params {
	q := r.URL.Query()
	p := Params{
		Page:  positiveInt(q.Get("page")),
		Limit: positiveInt(q.Get("limit")),
	}
	p.Normalize()
	return p
}

func positiveInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Normalize replaces out-of-range values with defaults.
func (p *Params) Normalize() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
}

// Offset is the SQL OFFSET for the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta describes the page within total records. An empty list still has one page.
func (p Params) Meta(total int) Meta {
	pages := (total + p.Limit - 1) / p.Limit
	if pages < 1 {
		pages = 1
	}
	return Meta{
		CurrentPage:  p.Page,
		PerPage:      p.Limit,
		TotalPages:   pages,
		TotalRecords: total,
		HasNext:      p.Page < pages,
		HasPrevious:  p.Page > 1,
	}
}
