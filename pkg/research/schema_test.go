package research

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchQueries(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{
			name:  "plain object",
			input: queriesJSON("a", "b"),
			want:  []string{"a", "b"},
		},
		{
			name:  "fenced block",
			input: "```json\n" + queriesJSON("a") + "\n```",
			want:  []string{"a"},
		},
		{
			name:    "surrounding prose",
			input:   "Sure! Here you go: " + queriesJSON("a") + " hope it helps",
			wantErr: ErrNoJSONObject.Error(),
		},
		{
			name:    "prose after fence",
			input:   "```json\n" + queriesJSON("a") + "\n```\nLet me know if you need more.",
			wantErr: ErrNoJSONObject.Error(),
		},
		{
			name:    "blank query",
			input:   `{"queries": [{"query": "   ", "rationale": "x"}]}`,
			wantErr: `field queries[0].query failed "notblank"`,
		},
		{
			name:    "missing queries field",
			input:   `{"items": []}`,
			wantErr: "queries",
		},
		{
			name:    "missing rationale",
			input:   `{"queries": [{"query": "a"}]}`,
			wantErr: "rationale",
		},
		{
			name:    "wrong type",
			input:   `{"queries": "a, b, c"}`,
			wantErr: "cannot unmarshal",
		},
		{
			name:    "not json",
			input:   "I could not think of any queries.",
			wantErr: ErrNoJSONObject.Error(),
		},
		{
			name:    "truncated json",
			input:   `{"queries": [{"query": "a", "rationale": "b"}`,
			wantErr: "failed to parse SearchQueries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SearchQueriesSchema.Parse(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			queries := make([]string, 0, len(got.Queries))
			for _, q := range got.Queries {
				queries = append(queries, q.Query)
			}
			assert.Equal(t, tt.want, queries)
		})
	}
}

func TestParseResearchSummary(t *testing.T) {
	got, err := ResearchSummarySchema.Parse(summaryJSON("Light becomes sugar."))
	require.NoError(t, err)
	assert.Equal(t, "Light becomes sugar.", got.Summary)
	assert.Equal(t, []string{"insight one"}, got.KeyInsights)

	_, err = ResearchSummarySchema.Parse(`{"summary": "", "key_insights": [], "sources_consulted": []}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary")

	_, err = ResearchSummarySchema.Parse(`{"summary": "  ", "key_insights": [], "sources_consulted": []}`)
	assert.Error(t, err)

	_, err = ResearchSummarySchema.Parse(`{"summary": "x", "key_insights": []}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources_consulted")

	// Empty lists are present and therefore valid.
	_, err = ResearchSummarySchema.Parse(`{"summary": "x", "key_insights": [], "sources_consulted": []}`)
	assert.NoError(t, err)
}

func TestParseFollowUpQuestions(t *testing.T) {
	got, err := FollowUpQuestionsSchema.Parse(followUpsJSON("Why?", "How?"))
	require.NoError(t, err)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, "How?", got.Questions[1].Question)

	_, err = FollowUpQuestionsSchema.Parse(`{"questions": [{"question": 7, "rationale": "r"}]}`)
	assert.Error(t, err)

	_, err = FollowUpQuestionsSchema.Parse(`{"questions": [{"question": "\t\n ", "rationale": "r"}]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "questions[0].question")
}

func TestFormatInstructionsEmbedsSchema(t *testing.T) {
	for _, s := range []string{
		SearchQueriesSchema.FormatInstructions(),
		ResearchSummarySchema.FormatInstructions(),
		FollowUpQuestionsSchema.FormatInstructions(),
	} {
		assert.True(t, strings.HasPrefix(s, "Return the JSON object directly"))
		assert.Contains(t, s, `"required"`)
	}
}
