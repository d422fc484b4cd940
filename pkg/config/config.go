package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mikeboe/research-flow/pkg/research"
)

// Provider names
const (
	ProviderOpenAI    = "openai"
	ProviderGoogleAI  = "googleai"
	ProviderAnthropic = "anthropic"
	ProviderGenAI     = "genai"

	SearchSerper = "serper"
	SearchTavily = "tavily"
	SearchArxiv  = "arxiv"
)

type Config struct {
	CompletionProvider string
	CompletionModel    string
	OpenAIApiKey       string
	GoogleApiKey       string
	AnthropicApiKey    string

	SearchProvider string
	SerperApiKey   string
	TavilyApiKey   string
	TavilyDepth    string
	SearchTimeout  time.Duration

	Research research.Config

	DatabaseURL string
	Port        string
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	// It's okay if .env doesn't exist, as long as env vars are set
	_ = godotenv.Load()

	return &Config{
		CompletionProvider: getEnv("COMPLETION_PROVIDER", ProviderOpenAI),
		CompletionModel:    getEnv("COMPLETION_MODEL", ""),
		OpenAIApiKey:       getEnv("OPENAI_API_KEY", ""),
		GoogleApiKey:       getEnv("GOOGLE_API_KEY", ""),
		AnthropicApiKey:    getEnv("ANTHROPIC_API_KEY", ""),

		SearchProvider: getEnv("SEARCH_PROVIDER", SearchSerper),
		SerperApiKey:   getEnv("SERPER_API_KEY", ""),
		TavilyApiKey:   getEnv("TAVILY_API_KEY", ""),
		TavilyDepth:    getEnv("TAVILY_DEPTH", "basic"),
		SearchTimeout:  time.Duration(getEnvAsInt("SEARCH_TIMEOUT_SECONDS", 10)) * time.Second,

		Research: research.Config{
			QueryCount:        getEnvAsInt("RESEARCH_QUERY_COUNT", research.DefaultQueryCount),
			ResultsPerQuery:   getEnvAsInt("RESEARCH_RESULTS_PER_QUERY", research.DefaultResultsPerQuery),
			FollowUpCount:     getEnvAsInt("RESEARCH_FOLLOW_UP_COUNT", research.DefaultFollowUpCount),
			SearchConcurrency: getEnvAsInt("SEARCH_CONCURRENCY", 1),
		},

		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8081"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
