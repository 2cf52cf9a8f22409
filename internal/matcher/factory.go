package matcher

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"supplymatch/internal/config"
)

// NewCompleter builds the completer selected by MATCHER_PROVIDER.
func NewCompleter(ctx context.Context, cfg config.Config) (Completer, error) {
	if err := cfg.RequireMatcher(); err != nil {
		return nil, err
	}
	switch cfg.MatcherProvider {
	case "openai":
		return NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.MatcherTemperature), nil
	case "gemini":
		return NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "", cfg.MatcherTemperature)
	default:
		return nil, fmt.Errorf("unsupported matcher provider: %s", cfg.MatcherProvider)
	}
}

// NewLimiter returns the limiter shared by every adapter in a process, or nil
// when throttling is disabled.
func NewLimiter(cfg config.Config) *rate.Limiter {
	if cfg.MatcherRateLimitRPS <= 0 {
		return nil
	}
	burst := cfg.MatcherBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.MatcherRateLimitRPS), burst)
}
