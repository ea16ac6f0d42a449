package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchReturnsEmptyWithoutConfiguredKey(t *testing.T) {
	p := New(Config{})
	articles, err := p.Search(context.Background(), "question", 5)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestSearchTavilyParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [{"title": "Headline", "content": "Body text"}]}`))
	}))
	defer srv.Close()

	p := New(Config{SearchProvider: "tavily", TavilyAPIKey: "key", TavilyBaseURL: srv.URL})
	articles, err := p.Search(context.Background(), "question", 5)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Headline", articles[0].Title)
	assert.Equal(t, "Body text", articles[0].Content)
}

func TestSearchBraveParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [{"title": "Brave headline", "description": "Summary"}]}`))
	}))
	defer srv.Close()

	p := New(Config{SearchProvider: "brave", BraveAPIKey: "key", BraveBaseURL: srv.URL})
	articles, err := p.Search(context.Background(), "question", 5)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Brave headline", articles[0].Title)
	assert.Equal(t, "Summary", articles[0].Content)
}

func TestSearchTavilySwallowsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Config{SearchProvider: "tavily", TavilyAPIKey: "key", TavilyBaseURL: srv.URL})
	articles, err := p.Search(context.Background(), "question", 5)
	require.NoError(t, err)
	assert.Empty(t, articles)
}
