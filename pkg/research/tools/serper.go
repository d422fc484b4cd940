package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mikeboe/research-flow/pkg/research"
)

const serperEndpoint = "https://google.serper.dev/search"

// Serper calls the Serper Google search API.
type Serper struct {
	Endpoint string
	apiKey   string
	client   *http.Client
}

// NewSerper fails fast when the API key is missing, before any run exists.
func NewSerper(apiKey string, timeout time.Duration) (*Serper, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, research.ErrMissingCredential("SERPER_API_KEY")
	}
	return &Serper{Endpoint: serperEndpoint, apiKey: apiKey, client: &http.Client{Timeout: timeout}}, nil
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search posts a query to Serper and returns up to limit organic results.
func (s *Serper) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	payload, err := json.Marshal(map[string]any{"q": query, "num": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serper http %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var data serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode serper response: %w", err)
	}

	results := make([]research.SearchResult, 0, len(data.Organic))
	for _, item := range data.Organic {
		if len(results) >= limit {
			break
		}
		results = append(results, research.SearchResult{Title: item.Title, URL: item.Link, Snippet: item.Snippet})
	}
	return results, nil
}
