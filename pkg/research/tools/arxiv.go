package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mikeboe/research-flow/pkg/research"
)

const arxivEndpoint = "https://export.arxiv.org/api/query"

// ArxivEntry struct to hold arXiv entry data
type ArxivEntry struct {
	Title     string      `xml:"title"`
	Summary   string      `xml:"summary"`
	Published string      `xml:"published"`
	ID        string      `xml:"id"`
	Link      []ArxivLink `xml:"link"`
}

// ArxivLink struct to hold arXiv link data
type ArxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

// ArxivFeed struct to hold the entire arXiv feed
type ArxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []ArxivEntry `xml:"entry"`
}

// Arxiv searches the arXiv Atom API. It needs no credential.
type Arxiv struct {
	Endpoint string
	client   *http.Client
}

func NewArxiv(timeout time.Duration) *Arxiv {
	return &Arxiv{Endpoint: arxivEndpoint, client: &http.Client{Timeout: timeout}}
}

// Search queries the arXiv API and maps entries to search results.
func (a *Arxiv) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	if limit <= 0 {
		limit = research.DefaultResultsPerQuery
	}

	params := url.Values{}
	params.Add("search_query", "all:"+query)
	params.Add("max_results", strconv.Itoa(limit))
	params.Add("start", "0")
	apiURL := a.Endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("arXiv returned non-200 status code", "status", resp.StatusCode)
		return nil, fmt.Errorf("arxiv http %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var feed ArxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal XML: %w", err)
	}

	results := make([]research.SearchResult, 0, len(feed.Entry))
	for _, entry := range feed.Entry {
		results = append(results, research.SearchResult{
			Title:   collapseSpace(entry.Title),
			URL:     entry.link(),
			Snippet: collapseSpace(entry.Summary),
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// link prefers the PDF link and falls back to the abstract page.
func (e ArxivEntry) link() string {
	for _, l := range e.Link {
		if l.Type == "application/pdf" {
			return l.Href
		}
	}
	return strings.TrimSpace(e.ID)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
