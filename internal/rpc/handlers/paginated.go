package handlers

import (
	"fmt"
	"net/http"
	"strconv"
)

const maxPageSize = 100

// PaginatedResponse holds the common pagination fields.
type PaginatedResponse[T any] struct {
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Total    int     `json:"total"`
	Prev     *string `json:"prev"`
	Next     *string `json:"next"`
	Data     []*T    `json:"data"`
}

// ReturnPaginatedData populates the total count and constructs absolute URLs
// for prev and next. Filters in the query string are carried over.
func (p *PaginatedResponse[T]) ReturnPaginatedData(r *http.Request, total int) {
	p.Total = total

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	baseURL := fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.Path)

	link := func(page int) *string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(p.PageSize))
		l := baseURL + "?" + q.Encode()
		return &l
	}

	p.Prev = nil
	if p.Page > 1 {
		p.Prev = link(p.Page - 1)
	}

	p.Next = nil
	offsetEnd := (p.Page-1)*p.PageSize + p.PageSize
	if offsetEnd < total {
		p.Next = link(p.Page + 1)
	}
}

// ExtractPagination reads the page and page_size from the query string
// and returns them with default fallbacks if they are missing or invalid.
func ExtractPagination(r *http.Request) (int, int, error) {
	pageStr := r.URL.Query().Get("page")
	if pageStr == "" {
		pageStr = "1"
	}
	pageSizeStr := r.URL.Query().Get("page_size")
	if pageSizeStr == "" {
		pageSizeStr = "10"
	}

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize < 1 {
		pageSize = 10
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return page, pageSize, err
}

// PaginatedQueryHandler runs fetch for the page requested by r.
func PaginatedQueryHandler[T any](r *http.Request, fetch func(page, pageSize int) (int, []*T, error)) (PaginatedResponse[T], error) {
	page, pageSize, _ := ExtractPagination(r)

	total, data, err := fetch(page, pageSize)
	if err != nil {
		return PaginatedResponse[T]{}, err
	}
	if data == nil {
		data = []*T{}
	}

	resp := PaginatedResponse[T]{
		Page:     page,
		PageSize: pageSize,
		Data:     data,
	}
	resp.ReturnPaginatedData(r, total)
	return resp, nil
}
