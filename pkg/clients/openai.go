package clients

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mikeboe/research-flow/pkg/research"
)

const GPT4o ModelType = "gpt-4o"

func OpenAI(apiKey string, model ModelType) (*LangChain, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, research.ErrMissingCredential("OPENAI_API_KEY")
	}
	if model == "" {
		model = GPT4o
	}

	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel(string(model)))
	if err != nil {
		return nil, fmt.Errorf("failed to init openai: %w", err)
	}

	return &LangChain{
		LLM:     llm,
		Options: []llms.CallOption{llms.WithTemperature(0), llms.WithJSONMode()},
	}, nil
}
