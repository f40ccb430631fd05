package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnPaginatedData(t *testing.T) {
	t.Run("HTTP, page=1 => no prev, has next", func(t *testing.T) {
		resp := PaginatedResponse[string]{
			Page:     1,
			PageSize: 10,
		}
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/test", nil)
		resp.ReturnPaginatedData(req, 100)

		assert.Nil(t, resp.Prev)
		require.NotNil(t, resp.Next)
		assert.Equal(t, 100, resp.Total)
	})

	t.Run("HTTPS, page=2 => has prev, no next if offsetEnd >= total", func(t *testing.T) {
		resp := PaginatedResponse[string]{
			Page:     2,
			PageSize: 10,
		}
		req := httptest.NewRequest(http.MethodGet, "https://example.com/api/v1/test", nil)
		resp.ReturnPaginatedData(req, 20)

		require.NotNil(t, resp.Prev)
		assert.Nil(t, resp.Next)
		assert.Contains(t, *resp.Prev, "https://example.com/api/v1/test?")
	})

	t.Run("filters survive in links", func(t *testing.T) {
		resp := PaginatedResponse[string]{Page: 2, PageSize: 5}
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/actions?actor=0xabc&page=2&page_size=5", nil)
		resp.ReturnPaginatedData(req, 50)

		require.NotNil(t, resp.Next)
		next, err := url.Parse(*resp.Next)
		require.NoError(t, err)
		assert.Equal(t, "0xabc", next.Query().Get("actor"))
		assert.Equal(t, "3", next.Query().Get("page"))
		assert.Equal(t, "5", next.Query().Get("page_size"))
	})
}

func TestExtractPagination(t *testing.T) {
	testCases := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
		wantErr      bool
	}{
		{"valid", "?page=3&page_size=15", 3, 15, false},
		{"defaults", "", 1, 10, false},
		{"invalid falls back", "?page=abc&page_size=xyz", 1, 10, true},
		{"page size capped", "?page_size=5000", 1, maxPageSize, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.com"+tc.query, nil)
			page, pageSize, err := ExtractPagination(req)
			assert.Equal(t, tc.wantPage, page)
			assert.Equal(t, tc.wantPageSize, pageSize)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPaginatedQueryHandler(t *testing.T) {
	t.Run("Successful Query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com?page=2&page_size=5", nil)

		var gotPage, gotPageSize int
		resp, err := PaginatedQueryHandler(req, func(page, pageSize int) (int, []*string, error) {
			gotPage, gotPageSize = page, pageSize
			return 30, []*string{ptr("first"), ptr("second")}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, gotPage)
		assert.Equal(t, 5, gotPageSize)
		assert.Equal(t, 30, resp.Total)
		assert.Len(t, resp.Data, 2)
		assert.NotNil(t, resp.Prev)
		assert.NotNil(t, resp.Next)
	})

	t.Run("Empty result is an empty list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		resp, err := PaginatedQueryHandler(req, func(page, pageSize int) (int, []*string, error) {
			return 0, nil, nil
		})
		require.NoError(t, err)
		b, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"data":[]`)
	})

	t.Run("Error from fetch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		resp, err := PaginatedQueryHandler(req, func(page, pageSize int) (int, []*string, error) {
			return 0, nil, errors.New("some DB error")
		})
		assert.Error(t, err)
		assert.Equal(t, 0, resp.Page)
		assert.Nil(t, resp.Data)
	})
}

func ptr(s string) *string {
	return &s
}
