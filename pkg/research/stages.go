package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Stage is one pure transformation of a snapshot. On success it returns the
// next snapshot (a copy of its input with its own fields set); on failure it
// returns a *StageError and the returned state must be ignored.
type Stage interface {
	Step() Step
	Run(ctx context.Context, state ResearchState) (ResearchState, error)
}

// QueryAnalyser decomposes the user question into Count search queries.
type QueryAnalyser struct {
	Completion CompletionService
	Count      int
	Logger     *slog.Logger
}

func (a *QueryAnalyser) Step() Step { return StepQueryAnalysis }

func (a *QueryAnalyser) Run(ctx context.Context, state ResearchState) (ResearchState, error) {
	question := strings.TrimSpace(state.UserQuery)
	if question == "" {
		return state, inputError(StepQueryAnalysis, "user query is empty")
	}
	a.Logger.Info("Starting query analysis", "query", question, "count", a.Count)

	text, err := a.Completion.Complete(ctx, queryAnalysisSystemPrompt(a.Count), queryAnalysisPrompt(question, a.Count))
	if err != nil {
		return state, transportError(StepQueryAnalysis, fmt.Errorf("completion failed: %w", err))
	}

	parsed, err := SearchQueriesSchema.Parse(text)
	if err != nil {
		return state, schemaError(StepQueryAnalysis, err)
	}
	if len(parsed.Queries) < a.Count {
		return state, schemaError(StepQueryAnalysis,
			fmt.Errorf("expected %d search queries, got %d", a.Count, len(parsed.Queries)))
	}

	next := state.Clone()
	next.SearchQueries = make([]string, 0, a.Count)
	next.QueryRationales = make([]string, 0, a.Count)
	for _, q := range parsed.Queries[:a.Count] {
		next.SearchQueries = append(next.SearchQueries, q.Query)
		next.QueryRationales = append(next.QueryRationales, q.Rationale)
	}

	a.Logger.Info("Generated queries", "queries", next.SearchQueries)
	return next, nil
}

// SearchExecutor runs every query against the SearchService. Results are
// concatenated in query order whatever order the calls finish in, and any
// failing call fails the whole stage.
type SearchExecutor struct {
	Search      SearchService
	Limit       int
	Concurrency int
	Logger      *slog.Logger
}

func (x *SearchExecutor) Step() Step { return StepSearchExecution }

func (x *SearchExecutor) Run(ctx context.Context, state ResearchState) (ResearchState, error) {
	queries := state.SearchQueries
	if len(queries) == 0 {
		return state, inputError(StepSearchExecution, "no search queries to execute")
	}
	x.Logger.Info("Starting search execution", "queries", len(queries), "limit", x.Limit)

	batches := make([][]SearchResult, len(queries))
	if x.Concurrency <= 1 {
		for i, q := range queries {
			res, err := x.searchOne(ctx, i, len(queries), q)
			if err != nil {
				return state, err
			}
			batches[i] = res
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(x.Concurrency)
		for i, q := range queries {
			g.Go(func() error {
				res, err := x.searchOne(gctx, i, len(queries), q)
				if err != nil {
					return err
				}
				batches[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			var se *StageError
			if errors.As(err, &se) {
				return state, se
			}
			return state, transportError(StepSearchExecution, err)
		}
	}

	next := state.Clone()
	next.SearchResults = slices.Concat(batches...)
	if next.SearchResults == nil {
		next.SearchResults = []SearchResult{}
	}

	x.Logger.Info("Search execution complete", "results", len(next.SearchResults))
	return next, nil
}

func (x *SearchExecutor) searchOne(ctx context.Context, i, total int, query string) ([]SearchResult, error) {
	x.Logger.Info("Searching", "index", i+1, "total", total, "query", query)
	res, err := x.Search.Search(ctx, query, x.Limit)
	if err != nil {
		x.Logger.Error("Search failed", "query", query, "error", err)
		return nil, transportError(StepSearchExecution, fmt.Errorf("search %q failed: %w", query, err))
	}
	if len(res) > x.Limit {
		res = res[:x.Limit]
	}
	x.Logger.Info("Search returned", "query", query, "count", len(res))
	return res, nil
}

// ContentSynthesiser turns the gathered results into a cited summary.
type ContentSynthesiser struct {
	Completion CompletionService
	Logger     *slog.Logger
}

func (c *ContentSynthesiser) Step() Step { return StepContentSynthesis }

func (c *ContentSynthesiser) Run(ctx context.Context, state ResearchState) (ResearchState, error) {
	if len(state.SearchResults) == 0 {
		return state, inputError(StepContentSynthesis, "no search results to synthesise")
	}
	c.Logger.Info("Starting content synthesis", "results", len(state.SearchResults))

	text, err := c.Completion.Complete(ctx, synthesisSystemPrompt, synthesisPrompt(state.UserQuery, state.SearchResults))
	if err != nil {
		return state, transportError(StepContentSynthesis, fmt.Errorf("completion failed: %w", err))
	}

	parsed, err := ResearchSummarySchema.Parse(text)
	if err != nil {
		return state, schemaError(StepContentSynthesis, err)
	}

	next := state.Clone()
	next.ResearchSummary = parsed.Summary
	next.KeyInsights = slices.Clone(parsed.KeyInsights)
	next.SourcesConsulted = slices.Clone(parsed.SourcesConsulted)

	c.Logger.Info("Summary generated", "length", len(parsed.Summary), "insights", len(parsed.KeyInsights))
	return next, nil
}

// FollowUpGenerator proposes up to Count follow-up questions.
type FollowUpGenerator struct {
	Completion CompletionService
	Count      int
	Logger     *slog.Logger
}

func (f *FollowUpGenerator) Step() Step { return StepFollowUpGeneration }

func (f *FollowUpGenerator) Run(ctx context.Context, state ResearchState) (ResearchState, error) {
	if strings.TrimSpace(state.ResearchSummary) == "" {
		return state, inputError(StepFollowUpGeneration, "research summary is empty")
	}
	f.Logger.Info("Starting follow-up generation", "count", f.Count)

	text, err := f.Completion.Complete(ctx, followUpSystemPrompt(f.Count), followUpPrompt(state.UserQuery, state.ResearchSummary, f.Count))
	if err != nil {
		return state, transportError(StepFollowUpGeneration, fmt.Errorf("completion failed: %w", err))
	}

	parsed, err := FollowUpQuestionsSchema.Parse(text)
	if err != nil {
		return state, schemaError(StepFollowUpGeneration, err)
	}
	if len(parsed.Questions) == 0 {
		return state, schemaError(StepFollowUpGeneration, errors.New("no follow-up questions returned"))
	}

	questions := parsed.Questions
	if len(questions) > f.Count {
		questions = questions[:f.Count]
	}
	next := state.Clone()
	next.FollowUpQuestions = make([]string, 0, len(questions))
	for _, q := range questions {
		next.FollowUpQuestions = append(next.FollowUpQuestions, q.Question)
	}

	f.Logger.Info("Generated follow-up questions", "questions", next.FollowUpQuestions)
	return next, nil
}

// ErrorHandler surfaces accumulated errors. It never changes anything but the
// tag, which the engine advances to Complete.
type ErrorHandler struct {
	Reporter ErrorReporter
}

func (h *ErrorHandler) Step() Step { return StepErrorHandler }

func (h *ErrorHandler) Run(ctx context.Context, state ResearchState) (ResearchState, error) {
	h.Reporter.Report(ctx, state.UserQuery, slices.Clone(state.Errors))
	return state, nil
}
