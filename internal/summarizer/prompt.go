package summarizer

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// maxPayloadChars bounds the serialized payload handed to the model,
	// keeping latency and cost predictable for large tool outputs.
	maxPayloadChars = 1000
	// maxSummaryChars clamps the returned summary.
	maxSummaryChars = 250
)

// BuildPrompt renders the summarization instruction for one event. The
// payload is serialized and truncated before being embedded.
func BuildPrompt(eventType string, payload map[string]any, engineerName string) string {
	if eventType == "" {
		eventType = "Unknown"
	}
	payloadStr := TruncatePayload(payload)

	var b strings.Builder
	audience := "an engineer"
	if name := strings.TrimSpace(engineerName); name != "" {
		audience = name
	}
	fmt.Fprintf(&b, "Generate a concise summary of this hook event payload for %s monitoring the system.\n\n", audience)
	fmt.Fprintf(&b, "Event Type: %s\nPayload:\n%s\n\n", eventType, payloadStr)
	b.WriteString(`Requirements:
- Keep it brief but descriptive
- Focus on the key action or information in the payload
- Don't reference the session_id in the summary
- Be specific and technical
- Use present tense
- No quotes or formatting
- Return ONLY the summary text`)
	b.WriteString("\n\nExamples:\n- Reads configuration file from project root\n- Executes npm install to update dependencies\n- Searches web for React documentation\n- Edits database schema to add user table\n- Agent responds with implementation plan")
	b.WriteString("\n\nGenerate the summary based on the payload:")
	return b.String()
}

// TruncatePayload serializes payload to indented JSON, truncated to
// maxPayloadChars with an ellipsis marker.
func TruncatePayload(payload map[string]any) string {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "{}"
	}
	s := string(data)
	if len(s) > maxPayloadChars {
		s = s[:maxPayloadChars] + "..."
	}
	return s
}

// CleanSummary normalizes a model response: trims whitespace, strips a
// single pair of surrounding quotes and a trailing period, and clamps the
// length to maxSummaryChars.
func CleanSummary(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if len(s) > maxSummaryChars {
		s = s[:maxSummaryChars] + "..."
	}
	return s
}
