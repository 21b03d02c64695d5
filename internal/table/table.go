// Package table implements the search, filter and pagination every console
// list view shares.
package table

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Query is what a table view was asked for.
type Query struct {
	Search  string
	Filters map[string]string
	Page    int
	Limit   int
}

// Filter returns the requested value for key, "" meaning no filter.
func (q Query) Filter(key string) string { return q.Filters[key] }

// ParseQuery reads search, page, limit and the named filter parameters.
// A filter value of "all" is treated as no filter.
func ParseQuery(c *gin.Context, filterKeys ...string) Query {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}
	q := Query{
		Search:  strings.TrimSpace(c.Query("search")),
		Filters: make(map[string]string, len(filterKeys)),
		Page:    page,
		Limit:   limit,
	}
	for _, k := range filterKeys {
		v := strings.TrimSpace(c.Query(k))
		if v != "" && !strings.EqualFold(v, "all") {
			q.Filters[k] = v
		}
	}
	return q
}

// Page is one page of a table, with the numbers the pager footer shows
// ("Showing From to To of Total").
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
	From       int `json:"from"`
	To         int `json:"to"`
}

// Paginate slices items for the given 1-based page. A page past the end
// yields no items but keeps the totals.
func Paginate[T any](items []T, page, limit int) Page[T] {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	total := len(items)
	p := Page[T]{
		Items:      []T{},
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
	start := (page - 1) * limit
	if start >= total {
		return p
	}
	end := start + limit
	if end > total {
		end = total
	}
	p.Items = items[start:end]
	p.From = start + 1
	p.To = end
	return p
}

// Filter keeps the items for which keep returns true.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Matches reports whether any field contains term, ignoring case.
// An empty term matches everything.
func Matches(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Is reports whether got equals the filter value want, ignoring case.
// An empty want matches everything.
func Is(want, got string) bool {
	return want == "" || strings.EqualFold(want, strings.TrimSpace(got))
}

// Window wraps a page the database already cut in the same envelope as
// Paginate. total is the row count before paging.
func Window[T any](items []T, total, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	p := Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
	if len(items) > 0 {
		p.From = (page-1)*limit + 1
		p.To = p.From + len(items) - 1
	}
	return p
}
