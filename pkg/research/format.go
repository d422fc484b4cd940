package research

import (
	"fmt"
	"strings"
)

// Report renders a result for a terminal or a plain-text tool response.
func (r Result) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Original Query: %s\n\n", r.OriginalQuery)

	b.WriteString("Search Queries:\n")
	for i, q := range r.SearchQueries {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, q)
	}

	fmt.Fprintf(&b, "\nResearch Summary:\n%s\n\n", r.ResearchSummary)

	b.WriteString("Follow-up Questions:\n")
	for i, q := range r.FollowUpQuestions {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, q)
	}

	if len(r.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	return b.String()
}
