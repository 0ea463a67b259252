package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRowServer(t *testing.T, rows []string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		if offset > len(rows) {
			offset = len(rows)
		}
		end := offset + limit
		if end > len(rows) {
			end = len(rows)
		}
		_ = json.NewEncoder(w).Encode(rows[offset:end])
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPFetch(t *testing.T) {
	server := newRowServer(t, []string{"a", "b", "c", "d", "e"})
	src := NewHTTP[string](server.URL)
	ctx := context.Background()

	items, err := src.Fetch(ctx, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, items)

	items, err = src.Fetch(ctx, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, items)

	items, err = src.Fetch(ctx, 10, 20)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHTTPFetchHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`["x"]`))
	}))
	t.Cleanup(server.Close)

	src := NewHTTP[string](server.URL, WithHTTPHeader[string]("Authorization", "Bearer tok"))
	_, err := src.Fetch(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestHTTPFetchCustomParams(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	src := NewHTTP[string](server.URL, WithHTTPParams[string]("start", "count"))
	_, err := src.Fetch(context.Background(), 10, 15)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "start=10")
	assert.Contains(t, gotQuery, "count=5")
}

func TestHTTPFetchErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)

		src := NewHTTP[string](server.URL)
		_, err := src.Fetch(context.Background(), 0, 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status")
	})

	t.Run("bad payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"not":"an array"}`))
		}))
		t.Cleanup(server.Close)

		src := NewHTTP[string](server.URL)
		_, err := src.Fetch(context.Background(), 0, 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode")
	})
}
