package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdpiprava/esquery/query"
	"github.com/bdpiprava/esquery/xhttp"
)

func Test_MappingRequest(t *testing.T) {
	testCases := []struct {
		name     string
		request  xhttp.Request
		wantPath string
	}{
		{
			name:     "single index",
			request:  xhttp.NewRequest(xhttp.POST, "/my-index/_search"),
			wantPath: "/my-index/_mapping",
		},
		{
			name:     "query string is dropped",
			request:  xhttp.NewRequest(xhttp.GET, "/logs-*,metrics/_search?q=error&size=5"),
			wantPath: "/logs-*,metrics/_mapping",
		},
		{
			name:     "all indices",
			request:  xhttp.NewRequest(xhttp.GET, "/_search"),
			wantPath: "/_mapping",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := query.MappingRequest(tc.request)

			assert.Equal(t, xhttp.GET, got.Method)
			assert.Equal(t, tc.wantPath, got.Path)
			assert.Empty(t, got.Body)
		})
	}

	t.Run("keeps the host", func(t *testing.T) {
		got := query.MappingRequest(xhttp.NewRequest(xhttp.GET, "/books/_search", xhttp.WithHost("http://other:9200/")))
		assert.Equal(t, "http://other:9200/books/_mapping", got.URL())
	})
}

func Test_IsSearchRequest(t *testing.T) {
	assert.True(t, query.IsSearchRequest(xhttp.NewRequest(xhttp.GET, "/books/_search?q=go")))
	assert.False(t, query.IsSearchRequest(xhttp.NewRequest(xhttp.GET, "/_cat/indices?q=_search")))
	assert.False(t, query.IsSearchRequest(xhttp.NewRequest(xhttp.GET, "/_cluster/health")))
}

func Test_PagedRequest(t *testing.T) {
	t.Run("GET sets query parameters and keeps the others", func(t *testing.T) {
		req := xhttp.NewRequest(xhttp.GET, "/books/_search?q=title:go&from=3")

		got, err := query.PagedRequest(req, 20, 10)

		require.NoError(t, err)
		assert.Equal(t, "/books/_search?q=title:go&from=20&size=10", got.Path)
	})

	t.Run("GET without limit removes from and size", func(t *testing.T) {
		req := xhttp.NewRequest(xhttp.GET, "/books/_search?from=10&q=go&size=10")

		got, err := query.PagedRequest(req, -1, -1)

		require.NoError(t, err)
		assert.Equal(t, "/books/_search?q=go", got.Path)
	})

	t.Run("POST moves from and size into the body", func(t *testing.T) {
		req := xhttp.NewRequest(xhttp.POST, "/books/_search?size=1&pretty",
			xhttp.WithBody(`{"query":{"match":{"title":"go"}},"sort":["_doc"]}`))

		got, err := query.PagedRequest(req, 10, 5)

		require.NoError(t, err)
		assert.Equal(t, "/books/_search?pretty", got.Path)
		assert.JSONEq(t, `{"query":{"match":{"title":"go"}},"sort":["_doc"],"from":10,"size":5}`, got.Body)
	})

	t.Run("POST with a blank body", func(t *testing.T) {
		got, err := query.PagedRequest(xhttp.NewRequest(xhttp.POST, "/books/_search", xhttp.WithBody("  ")), 0, 20)

		require.NoError(t, err)
		assert.JSONEq(t, `{"from":0,"size":20}`, got.Body)
	})

	t.Run("POST without limit removes from and size from the body", func(t *testing.T) {
		req := xhttp.NewRequest(xhttp.POST, "/books/_search", xhttp.WithBody(`{"from":10,"size":10,"query":{}}`))

		got, err := query.PagedRequest(req, -1, -1)

		require.NoError(t, err)
		assert.JSONEq(t, `{"query":{}}`, got.Body)
	})

	t.Run("POST with a body that is not an object", func(t *testing.T) {
		_, err := query.PagedRequest(xhttp.NewRequest(xhttp.POST, "/books/_search", xhttp.WithBody(`[1]`)), 0, 10)

		assert.EqualError(t, err, "request body is not a JSON object")
	})

	t.Run("other methods are rejected", func(t *testing.T) {
		_, err := query.PagedRequest(xhttp.NewRequest(xhttp.PUT, "/books/_search"), 0, 10)

		assert.ErrorIs(t, err, query.ErrUnsupportedMethod)
	})
}

func Test_CountRequest(t *testing.T) {
	t.Run("GET keeps only the parameters count accepts", func(t *testing.T) {
		req := xhttp.NewRequest(xhttp.GET, "/books/_search?q=go&from=10&size=10&routing=a&sort=title&df=title")

		got, err := query.CountRequest(req)

		require.NoError(t, err)
		assert.Equal(t, xhttp.GET, got.Method)
		assert.Equal(t, "/books/_count?q=go&routing=a&df=title", got.Path)
		assert.Empty(t, got.Body)
	})

	t.Run("POST reduces the body to the query", func(t *testing.T) {
		req := xhttp.NewRequest(xhttp.POST, "/books/_search?size=3",
			xhttp.WithBody(`{"query":{"term":{"lang":"go"}},"size":3,"aggs":{"a":{}},"sort":["_doc"]}`))

		got, err := query.CountRequest(req)

		require.NoError(t, err)
		assert.Equal(t, "/books/_count", got.Path)
		assert.JSONEq(t, `{"query":{"term":{"lang":"go"}}}`, got.Body)
	})

	t.Run("POST without query counts everything", func(t *testing.T) {
		got, err := query.CountRequest(xhttp.NewRequest(xhttp.POST, "/books/_search", xhttp.WithBody(`{"size":3}`)))

		require.NoError(t, err)
		assert.JSONEq(t, `{}`, got.Body)
	})

	t.Run("other methods are rejected", func(t *testing.T) {
		_, err := query.CountRequest(xhttp.NewRequest(xhttp.DELETE, "/books/_search"))

		assert.ErrorIs(t, err, query.ErrUnsupportedMethod)
	})
}

func Test_ParseCount(t *testing.T) {
	count, err := query.ParseCount(`{"count":42,"_shards":{"total":1}}`)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	_, err = query.ParseCount(`{"error":"boom"}`)
	assert.EqualError(t, err, "count response has no count")
}
