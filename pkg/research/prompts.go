package research

import (
	"fmt"
	"strings"
)

func queryAnalysisSystemPrompt(n int) string {
	return fmt.Sprintf(`You break down research questions into EXACTLY %d diverse, precise web-search queries.
Cover the most important angles of the topic.
Each query should be concise, relevant, and designed to yield useful search results.
Each query should have a rationale explaining its importance.`, n)
}

func queryAnalysisPrompt(question string, n int) string {
	return fmt.Sprintf("User question: %s\n\nGenerate EXACTLY %d search queries.\n\n%s",
		question, n, SearchQueriesSchema.FormatInstructions())
}

const synthesisSystemPrompt = `You synthesise multiple sources into a clear, cited answer.
Highlight key insights.`

func synthesisPrompt(question string, results []SearchResult) string {
	return fmt.Sprintf("User question: %s\n\nSearch results:\n%s\n\n%s",
		question, FormatSources(results), ResearchSummarySchema.FormatInstructions())
}

// FormatSources renders results as the numbered context block fed to synthesis.
func FormatSources(results []SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "Source %d: %s\nURL: %s\nContent: %s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}

func followUpSystemPrompt(m int) string {
	return fmt.Sprintf(`Generate EXACTLY %d thoughtful follow-up questions that would deepen the user's
understanding or cover uncovered aspects. Be concise.`, m)
}

func followUpPrompt(question, summary string, m int) string {
	return fmt.Sprintf("Original question: %s\n\nResearch summary: %s\n\nGenerate EXACTLY %d follow-up questions.\n\n%s",
		question, summary, m, FollowUpQuestionsSchema.FormatInstructions())
}
