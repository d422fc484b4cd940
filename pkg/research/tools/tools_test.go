package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/research-flow/pkg/config"
	"github.com/mikeboe/research-flow/pkg/research"
)

func TestSerperSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))

		var body struct {
			Q   string `json:"q"`
			Num int    `json:"num"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "golang generics", body.Q)
		assert.Equal(t, 2, body.Num)

		fmt.Fprint(w, `{"organic": [
			{"title": "One", "link": "https://one.example", "snippet": "first"},
			{"title": "Two", "link": "https://two.example", "snippet": "second"},
			{"title": "Three", "link": "https://three.example", "snippet": "third"}
		]}`)
	}))
	defer srv.Close()

	s, err := NewSerper("test-key", time.Second)
	require.NoError(t, err)
	s.Endpoint = srv.URL

	results, err := s.Search(context.Background(), "golang generics", 2)
	require.NoError(t, err)
	assert.Equal(t, []research.SearchResult{
		{Title: "One", URL: "https://one.example", Snippet: "first"},
		{Title: "Two", URL: "https://two.example", Snippet: "second"},
	}, results)
}

func TestSerperHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s, err := NewSerper("test-key", time.Second)
	require.NoError(t, err)
	s.Endpoint = srv.URL

	_, err = s.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serper http 429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-key", body["api_key"])
		assert.Equal(t, "advanced", body["search_depth"])
		assert.Equal(t, float64(1), body["max_results"])

		fmt.Fprint(w, `{"results": [
			{"title": "A", "url": "https://a.example", "content": "alpha"},
			{"title": "B", "url": "https://b.example", "content": "beta"}
		]}`)
	}))
	defer srv.Close()

	tv, err := NewTavily("test-key", "advanced", time.Second)
	require.NoError(t, err)
	tv.Endpoint = srv.URL

	results, err := tv.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Equal(t, []research.SearchResult{{Title: "A", URL: "https://a.example", Snippet: "alpha"}}, results)
}

func TestTavilyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tv, err := NewTavily("bad", "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "basic", tv.Depth)
	tv.Endpoint = srv.URL

	_, err = tv.Search(context.Background(), "q", 3)
	assert.EqualError(t, err, "tavily http 401")
}

const arxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is
      All You Need</title>
    <summary>  The dominant sequence transduction models...  </summary>
    <link href="http://arxiv.org/abs/1706.03762v7" type="text/html"/>
    <link href="http://arxiv.org/pdf/1706.03762v7" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT</title>
    <summary>We introduce BERT.</summary>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all:transformers", r.URL.Query().Get("search_query"))
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		fmt.Fprint(w, arxivFeed)
	}))
	defer srv.Close()

	a := NewArxiv(time.Second)
	a.Endpoint = srv.URL

	results, err := a.Search(context.Background(), "transformers", 5)
	require.NoError(t, err)
	assert.Equal(t, []research.SearchResult{
		{
			Title:   "Attention Is All You Need",
			URL:     "http://arxiv.org/pdf/1706.03762v7",
			Snippet: "The dominant sequence transduction models...",
		},
		{
			Title:   "BERT",
			URL:     "http://arxiv.org/abs/1810.04805v2",
			Snippet: "We introduce BERT.",
		},
	}, results)
}

func TestArxivHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	a := NewArxiv(5 * time.Second)
	a.Endpoint = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := a.Search(ctx, "q", 1)
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.Config
		wantType  any
		wantErrIn string
	}{
		{
			name:     "serper",
			cfg:      config.Config{SearchProvider: config.SearchSerper, SerperApiKey: "k"},
			wantType: &Serper{},
		},
		{
			name:     "tavily",
			cfg:      config.Config{SearchProvider: config.SearchTavily, TavilyApiKey: "k"},
			wantType: &Tavily{},
		},
		{
			name:     "arxiv needs no key",
			cfg:      config.Config{SearchProvider: config.SearchArxiv},
			wantType: &Arxiv{},
		},
		{
			name:      "serper without key",
			cfg:       config.Config{SearchProvider: config.SearchSerper},
			wantErrIn: "SERPER_API_KEY",
		},
		{
			name:      "tavily without key",
			cfg:       config.Config{SearchProvider: config.SearchTavily},
			wantErrIn: "TAVILY_API_KEY",
		},
		{
			name:      "unknown provider",
			cfg:       config.Config{SearchProvider: "bing"},
			wantErrIn: "SEARCH_PROVIDER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := FromConfig(&tt.cfg)
			if tt.wantErrIn != "" {
				require.Error(t, err)
				assert.True(t, research.IsConfigurationError(err))
				assert.Contains(t, err.Error(), tt.wantErrIn)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, svc)
		})
	}
}
