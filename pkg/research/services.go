package research

import "context"

// CompletionService produces text for a system instruction and a prompt.
// It never validates the structure of what it returns; stages do that.
type CompletionService interface {
	Complete(ctx context.Context, systemInstruction, prompt string) (string, error)
}

// SearchService returns at most limit ranked web results for a query.
type SearchService interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// CompletionFunc adapts a plain function to CompletionService.
type CompletionFunc func(ctx context.Context, systemInstruction, prompt string) (string, error)

func (f CompletionFunc) Complete(ctx context.Context, systemInstruction, prompt string) (string, error) {
	return f(ctx, systemInstruction, prompt)
}

// SearchFunc adapts a plain function to SearchService.
type SearchFunc func(ctx context.Context, query string, limit int) ([]SearchResult, error)

func (f SearchFunc) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return f(ctx, query, limit)
}
