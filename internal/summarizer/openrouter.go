package summarizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const openRouterDefaultBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterSummarizer calls OpenRouter's OpenAI-compatible chat completions
// endpoint.
type OpenRouterSummarizer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenRouter builds an OpenRouter-backed summarizer.
func NewOpenRouter(apiKey, model string) *OpenRouterSummarizer {
	return &OpenRouterSummarizer{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: openRouterDefaultBaseURL,
		// The per-call context carries the real deadline; this is a
		// backstop against a missing one.
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Provider implements Summarizer.
func (s *OpenRouterSummarizer) Provider() string { return "openrouter" }

// Summarize implements Summarizer with a single non-streaming call.
func (s *OpenRouterSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "model", s.model)
	body, _ = sjson.SetBytes(body, "max_tokens", summaryMaxTokens)
	body, _ = sjson.SetBytes(body, "messages.0.role", "user")
	body, _ = sjson.SetBytes(body, "messages.0.content", prompt)

	url := strings.TrimSuffix(s.baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer func() {
		if errClose := httpResp.Body.Close(); errClose != nil {
			log.Errorf("openrouter summarizer: close response body error: %v", errClose)
		}
	}()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", err
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		log.Debugf("openrouter request error, status: %d, body: %s", httpResp.StatusCode, truncateForLog(data))
		return "", fmt.Errorf("openrouter: status %d", httpResp.StatusCode)
	}

	text := gjson.GetBytes(data, "choices.0.message.content").String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("openrouter: response contained no content")
	}
	return text, nil
}

func truncateForLog(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
