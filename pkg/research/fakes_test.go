package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var quietLogger = slog.New(slog.DiscardHandler)

// scriptedCompletion returns its replies in order and records every call.
type scriptedCompletion struct {
	mu      sync.Mutex
	replies []string
	errs    map[int]error
	calls   int
	prompts []string
}

func (s *scriptedCompletion) Complete(_ context.Context, system, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, system+"\n"+prompt)
	if err, ok := s.errs[i]; ok {
		return "", err
	}
	if i >= len(s.replies) {
		return "", fmt.Errorf("unexpected completion call %d", i)
	}
	return s.replies[i], nil
}

func (s *scriptedCompletion) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeSearch returns perQuery results named after the query.
type fakeSearch struct {
	mu       sync.Mutex
	perQuery int
	failOn   string
	delays   map[string]chan struct{}
	queries  []string
}

var errSearchDown = errors.New("search backend unavailable")

func (f *fakeSearch) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	gate := f.delays[query]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if query == f.failOn {
		return nil, errSearchDown
	}
	out := make([]SearchResult, 0, f.perQuery)
	for i := 0; i < f.perQuery; i++ {
		out = append(out, SearchResult{
			Title:   fmt.Sprintf("%s result %d", query, i+1),
			URL:     fmt.Sprintf("https://example.com/%s/%d", strings.ReplaceAll(query, " ", "-"), i+1),
			Snippet: fmt.Sprintf("snippet %d for %s", i+1, query),
		})
	}
	return out, nil
}

func (f *fakeSearch) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// recordingReporter remembers every report it receives.
type recordingReporter struct {
	mu      sync.Mutex
	reports [][]string
}

func (r *recordingReporter) Report(_ context.Context, _ string, errs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, errs)
}

func queriesJSON(queries ...string) string {
	parts := make([]string, 0, len(queries))
	for _, q := range queries {
		parts = append(parts, fmt.Sprintf(`{"query": %q, "rationale": "covers %s"}`, q, q))
	}
	return `{"queries": [` + strings.Join(parts, ", ") + `]}`
}

func summaryJSON(summary string) string {
	return fmt.Sprintf(`{"summary": %q, "key_insights": ["insight one"], "sources_consulted": ["https://example.com/a"]}`, summary)
}

func followUpsJSON(questions ...string) string {
	parts := make([]string, 0, len(questions))
	for _, q := range questions {
		parts = append(parts, fmt.Sprintf(`{"question": %q, "rationale": "digs deeper"}`, q))
	}
	return `{"questions": [` + strings.Join(parts, ", ") + `]}`
}
