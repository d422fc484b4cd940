package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mikeboe/research-flow/pkg/research"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API.
type Tavily struct {
	Endpoint string
	// Depth controls Tavily's search_depth parameter (basic or advanced).
	Depth  string
	apiKey string
	client *http.Client
}

func NewTavily(apiKey, depth string, timeout time.Duration) (*Tavily, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, research.ErrMissingCredential("TAVILY_API_KEY")
	}
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{Endpoint: tavilyEndpoint, Depth: depth, apiKey: apiKey, client: &http.Client{Timeout: timeout}}, nil
}

// Search posts a query to Tavily.
func (t *Tavily) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	payload, err := json.Marshal(map[string]any{
		"query":        query,
		"api_key":      t.apiKey,
		"search_depth": t.Depth,
		"max_results":  limit,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	results := make([]research.SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		if len(results) >= limit {
			break
		}
		results = append(results, research.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return results, nil
}
