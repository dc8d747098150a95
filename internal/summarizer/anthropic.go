package summarizer

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// summaryMaxTokens caps the completion size for summary generation.
const summaryMaxTokens = 100

// AnthropicSummarizer calls the Anthropic Messages API through the official
// SDK.
type AnthropicSummarizer struct {
	client anthropic.Client
	model  string
}

// NewAnthropic builds an Anthropic-backed summarizer.
func NewAnthropic(apiKey, model string) *AnthropicSummarizer {
	return &AnthropicSummarizer{
		client: anthropic.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey))),
		model:  model,
	}
}

// Provider implements Summarizer.
func (s *AnthropicSummarizer) Provider() string { return "anthropic" }

// Summarize implements Summarizer with a single non-streaming call.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: summaryMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errors.New("anthropic: response contained no text block")
}
