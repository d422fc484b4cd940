package clients

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/mikeboe/research-flow/pkg/research"
)

const (
	Claude4Sonnet ModelType = "claude-sonnet-4-20250514"
	Claude4Opus   ModelType = "claude-opus-4-20250514"
	Claude35Haiku ModelType = "claude-3-5-haiku-20241022"
)

func AnthropicAI(apiKey string, model ModelType) (*LangChain, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, research.ErrMissingCredential("ANTHROPIC_API_KEY")
	}
	if model == "" {
		model = Claude4Sonnet
	}

	llm, err := anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(string(model)))
	if err != nil {
		return nil, fmt.Errorf("failed to init anthropic: %w", err)
	}

	// Anthropic has no JSON mode; the schema in the prompt carries the format.
	return &LangChain{
		LLM:     llm,
		Options: []llms.CallOption{llms.WithTemperature(0)},
	}, nil
}
