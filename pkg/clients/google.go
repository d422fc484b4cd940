package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/mikeboe/research-flow/pkg/research"
)

// ModelType names a model understood by one of the providers.
type ModelType string

const (
	// DefaultModel is the default Google model to use if none is specified
	DefaultModel ModelType = "gemini-3-flash-preview"
	ProModel     ModelType = "gemini-3-pro-preview"
)

// GoogleAi builds a completion client on langchaingo's Google AI backend.
func GoogleAi(ctx context.Context, apiKey string, model ModelType) (*LangChain, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, research.ErrMissingCredential("GOOGLE_API_KEY")
	}
	if model == "" {
		model = DefaultModel
	}

	// See https://ai.google.dev/gemini-api/docs/models/gemini for possible models
	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(string(model)))
	if err != nil {
		return nil, fmt.Errorf("failed to init google ai: %w", err)
	}

	return &LangChain{
		LLM:     llm,
		Options: []llms.CallOption{llms.WithTemperature(0), llms.WithJSONMode()},
	}, nil
}
