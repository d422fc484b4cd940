package clients

import (
	"context"
	"fmt"

	"github.com/mikeboe/research-flow/pkg/config"
	"github.com/mikeboe/research-flow/pkg/research"
)

// FromConfig builds the configured CompletionService.
func FromConfig(ctx context.Context, cfg *config.Config) (research.CompletionService, error) {
	model := ModelType(cfg.CompletionModel)
	switch cfg.CompletionProvider {
	case config.ProviderOpenAI:
		return completion(OpenAI(cfg.OpenAIApiKey, model))
	case config.ProviderGoogleAI:
		return completion(GoogleAi(ctx, cfg.GoogleApiKey, model))
	case config.ProviderAnthropic:
		return completion(AnthropicAI(cfg.AnthropicApiKey, model))
	case config.ProviderGenAI:
		return completion(NewGenAI(ctx, cfg.GoogleApiKey, model))
	default:
		return nil, &research.ConfigurationError{
			Setting: "COMPLETION_PROVIDER",
			Reason:  fmt.Sprintf("has unknown value %q", cfg.CompletionProvider),
		}
	}
}

// completion keeps a failed constructor from leaking a typed nil.
func completion[T research.CompletionService](c T, err error) (research.CompletionService, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
