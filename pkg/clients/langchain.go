package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// LangChain adapts a langchaingo model to research.CompletionService.
type LangChain struct {
	LLM     llms.Model
	Options []llms.CallOption
}

func (c *LangChain) Complete(ctx context.Context, systemInstruction, prompt string) (string, error) {
	resp, err := c.LLM.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemInstruction),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, c.Options...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}
