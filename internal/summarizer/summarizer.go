// Package summarizer generates short natural-language summaries of hook
// event payloads via an external model provider. Providers are selected once
// at construction; callers see a single provider-agnostic capability.
package summarizer

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/config"
)

// Summarizer produces a short plain-text summary for a prompt. Either the
// returned text is non-empty or an error is returned; callers treat every
// error as "no summary".
type Summarizer interface {
	// Summarize issues a single call to the provider. No retries.
	Summarize(ctx context.Context, prompt string) (string, error)
	// Provider returns the provider identifier for diagnostics.
	Provider() string
}

// New selects a provider from the summarization config. It returns nil when
// no provider can be configured, which disables enrichment entirely: events
// then simply never receive a summary.
//
// Selection mirrors the dashboard's original behavior: "openrouter" is used
// when selected and a key is present, otherwise Anthropic is the default,
// falling back gracefully when its key is missing too.
func New(cfg config.SummarizationConfig) Summarizer {
	switch cfg.Provider {
	case "openrouter":
		if cfg.OpenRouterKey != "" {
			return NewOpenRouter(cfg.OpenRouterKey, cfg.OpenRouterModel)
		}
		log.Warn("OPENROUTER_KEY not set, falling back to anthropic provider")
	case "", "anthropic":
	default:
		log.Warnf("unknown summarization provider %q, event enrichment disabled", cfg.Provider)
		return nil
	}
	if cfg.AnthropicKey != "" {
		return NewAnthropic(cfg.AnthropicKey, cfg.AnthropicModel)
	}
	log.Info("no summarization provider configured, event enrichment disabled")
	return nil
}
