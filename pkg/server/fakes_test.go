package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/research-flow/pkg/database"
	"github.com/mikeboe/research-flow/pkg/research"
)

// memStore is an in-memory RunStore.
type memStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*database.RunRecord
	logs map[uuid.UUID][]database.LogEntry
}

func newMemStore() *memStore {
	return &memStore{
		runs: make(map[uuid.UUID]*database.RunRecord),
		logs: make(map[uuid.UUID][]database.LogEntry),
	}
}

func (m *memStore) CreateRun(_ context.Context, id uuid.UUID, question string, config json.RawMessage) (*database.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	rec := &database.RunRecord{ID: id, Question: question, Status: database.StatusRunning, Config: config, CreatedAt: now, UpdatedAt: now}
	m.runs[id] = rec
	return rec, nil
}

func (m *memStore) FinishRun(_ context.Context, id uuid.UUID, status string, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.runs[id]
	if !ok {
		return database.ErrRunNotFound
	}
	rec.Status = status
	rec.Result = result
	rec.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) GetRun(_ context.Context, id uuid.UUID) (*database.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.runs[id]
	if !ok {
		return nil, database.ErrRunNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) ListRuns(_ context.Context, limit int) ([]database.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.RunRecord
	for _, rec := range m.runs {
		if len(out) >= limit {
			break
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memStore) AppendLog(_ context.Context, runID uuid.UUID, ts time.Time, level, message string, metadata json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[runID] = append(m.logs[runID], database.LogEntry{
		ID: len(m.logs[runID]) + 1, Timestamp: ts, Level: level, Message: message, Metadata: metadata,
	})
	return nil
}

func (m *memStore) GetRunLogs(_ context.Context, runID uuid.UUID) ([]database.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.LogEntry(nil), m.logs[runID]...), nil
}

func (m *memStore) onlyRun(t *testing.T) database.RunRecord {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.runs, 1)
	for _, rec := range m.runs {
		return *rec
	}
	return database.RunRecord{}
}

// stubCompletion answers each stage by the schema its prompt ends with.
var stubCompletion = research.CompletionFunc(func(_ context.Context, _, prompt string) (string, error) {
	switch {
	case strings.HasSuffix(prompt, research.SearchQueriesSchema.JSONSchema):
		return `{"queries": [
			{"query": "q1", "rationale": "r"},
			{"query": "q2", "rationale": "r"},
			{"query": "q3", "rationale": "r"}
		]}`, nil
	case strings.HasSuffix(prompt, research.ResearchSummarySchema.JSONSchema):
		return `{"summary": "Tides follow the moon.", "key_insights": ["gravity"], "sources_consulted": ["https://example.com"]}`, nil
	default:
		return `{"questions": [{"question": "Why two tides?", "rationale": "r"}, {"question": "What about the sun?", "rationale": "r"}]}`, nil
	}
})

func stubSearch(failOn string) research.SearchFunc {
	return func(_ context.Context, query string, limit int) ([]research.SearchResult, error) {
		if query == failOn {
			return nil, fmt.Errorf("backend down")
		}
		return []research.SearchResult{{Title: query, URL: "https://example.com/" + query, Snippet: "s"}}, nil
	}
}

func newTestService(t *testing.T, failOn string) (*Service, *memStore) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	engine, err := research.NewEngine(research.DefaultConfig(), stubCompletion, stubSearch(failOn), research.WithLogger(logger))
	require.NoError(t, err)
	store := newMemStore()
	return NewService(store, engine, logger), store
}
