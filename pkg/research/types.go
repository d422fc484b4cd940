package research

import "slices"

// Config holds the tunable constants of a research run
type Config struct {
	QueryCount        int `json:"query_count"`        // N: search queries produced by query analysis
	ResultsPerQuery   int `json:"results_per_query"`  // k: results requested per search query
	FollowUpCount     int `json:"follow_up_count"`    // M: follow-up questions produced at the end
	SearchConcurrency int `json:"search_concurrency"` // <= 1 runs searches sequentially
}

const (
	DefaultQueryCount      = 3
	DefaultResultsPerQuery = 5
	DefaultFollowUpCount   = 2
)

// DefaultConfig returns the canonical defaults.
func DefaultConfig() Config {
	return Config{
		QueryCount:        DefaultQueryCount,
		ResultsPerQuery:   DefaultResultsPerQuery,
		FollowUpCount:     DefaultFollowUpCount,
		SearchConcurrency: 1,
	}
}

// Validate reports the first setting that cannot drive a run.
func (c Config) Validate() error {
	switch {
	case c.QueryCount < 1:
		return &ConfigurationError{Setting: "query count", Reason: "must be at least 1"}
	case c.ResultsPerQuery < 1:
		return &ConfigurationError{Setting: "results per query", Reason: "must be at least 1"}
	case c.FollowUpCount < 1:
		return &ConfigurationError{Setting: "follow-up count", Reason: "must be at least 1"}
	}
	return nil
}

// SearchResult represents a single search result
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ResearchState is the snapshot handed from stage to stage. Every field is
// always present; stages return a modified copy and never touch their input.
type ResearchState struct {
	UserQuery         string         `json:"user_query"`
	SearchQueries     []string       `json:"search_queries"`
	SearchResults     []SearchResult `json:"search_results"`
	ResearchSummary   string         `json:"research_summary"`
	FollowUpQuestions []string       `json:"follow_up_questions"`
	CurrentStep       Step           `json:"current_step"`
	Errors            []string       `json:"errors"`

	// Kept for observability only; nothing downstream depends on them.
	QueryRationales  []string `json:"query_rationales"`
	KeyInsights      []string `json:"key_insights"`
	SourcesConsulted []string `json:"sources_consulted"`
}

// NewState creates the initial snapshot for a question.
func NewState(question string) ResearchState {
	return ResearchState{
		UserQuery:         question,
		SearchQueries:     []string{},
		SearchResults:     []SearchResult{},
		FollowUpQuestions: []string{},
		CurrentStep:       StepQueryAnalysis,
		Errors:            []string{},
		QueryRationales:   []string{},
		KeyInsights:       []string{},
		SourcesConsulted:  []string{},
	}
}

// Clone returns a deep copy so that later snapshots never alias earlier ones.
func (s ResearchState) Clone() ResearchState {
	out := s
	out.SearchQueries = cloneOrEmpty(s.SearchQueries)
	out.SearchResults = cloneOrEmpty(s.SearchResults)
	out.FollowUpQuestions = cloneOrEmpty(s.FollowUpQuestions)
	out.Errors = cloneOrEmpty(s.Errors)
	out.QueryRationales = cloneOrEmpty(s.QueryRationales)
	out.KeyInsights = cloneOrEmpty(s.KeyInsights)
	out.SourcesConsulted = cloneOrEmpty(s.SourcesConsulted)
	return out
}

func cloneOrEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return slices.Clone(in)
}

// Result is the view handed to front-ends once a run is complete.
type Result struct {
	OriginalQuery     string   `json:"original_query"`
	SearchQueries     []string `json:"search_queries"`
	ResearchSummary   string   `json:"research_summary"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	Errors            []string `json:"errors"`
	KeyInsights       []string `json:"key_insights"`
	SourcesConsulted  []string `json:"sources_consulted"`
	ResultCount       int      `json:"result_count"`
}

// ResultOf builds the front-end view of a state.
func ResultOf(s ResearchState) Result {
	c := s.Clone()
	return Result{
		OriginalQuery:     c.UserQuery,
		SearchQueries:     c.SearchQueries,
		ResearchSummary:   c.ResearchSummary,
		FollowUpQuestions: c.FollowUpQuestions,
		Errors:            c.Errors,
		KeyInsights:       c.KeyInsights,
		SourcesConsulted:  c.SourcesConsulted,
		ResultCount:       len(c.SearchResults),
	}
}

// Failed reports whether any stage recorded an error.
func (r Result) Failed() bool {
	return len(r.Errors) > 0
}
