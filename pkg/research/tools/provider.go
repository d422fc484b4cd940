package tools

import (
	"fmt"

	"github.com/mikeboe/research-flow/pkg/config"
	"github.com/mikeboe/research-flow/pkg/research"
)

// FromConfig builds the configured SearchService.
func FromConfig(cfg *config.Config) (research.SearchService, error) {
	switch cfg.SearchProvider {
	case config.SearchSerper:
		return searcher(NewSerper(cfg.SerperApiKey, cfg.SearchTimeout))
	case config.SearchTavily:
		return searcher(NewTavily(cfg.TavilyApiKey, cfg.TavilyDepth, cfg.SearchTimeout))
	case config.SearchArxiv:
		return NewArxiv(cfg.SearchTimeout), nil
	default:
		return nil, &research.ConfigurationError{
			Setting: "SEARCH_PROVIDER",
			Reason:  fmt.Sprintf("has unknown value %q", cfg.SearchProvider),
		}
	}
}

func searcher[T research.SearchService](s T, err error) (research.SearchService, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
