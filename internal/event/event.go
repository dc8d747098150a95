// Package event defines the hook event model shared by the ingestion
// pipeline, the store, and the live stream, together with the JSON frames
// pushed to stream subscribers.
package event

import (
	"encoding/json"
	"strings"
)

// HookEvent is one recorded hook occurrence. ID and Timestamp are assigned
// at ingestion time; Summary is filled in later by the enricher, if at all.
type HookEvent struct {
	ID            int64            `json:"id,omitempty"`
	SourceApp     string           `json:"source_app"`
	SessionID     string           `json:"session_id"`
	HookEventType string           `json:"hook_event_type"`
	Payload       map[string]any   `json:"payload"`
	Chat          []map[string]any `json:"chat,omitempty"`
	Summary       string           `json:"summary,omitempty"`
	Timestamp     int64            `json:"timestamp,omitempty"`
}

// MissingFields returns the names of required fields that are absent.
// A nil payload is treated as missing; an empty map is accepted.
func (e *HookEvent) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(e.SourceApp) == "" {
		missing = append(missing, "source_app")
	}
	if strings.TrimSpace(e.SessionID) == "" {
		missing = append(missing, "session_id")
	}
	if strings.TrimSpace(e.HookEventType) == "" {
		missing = append(missing, "hook_event_type")
	}
	if e.Payload == nil {
		missing = append(missing, "payload")
	}
	return missing
}

// FilterOptions lists the distinct values observed across stored events,
// used by the dashboard to populate its filter dropdowns.
type FilterOptions struct {
	SourceApps []string `json:"source_apps"`
	SessionIDs []string `json:"session_ids"`
	EventTypes []string `json:"hook_event_types"`
}

// Stream message types pushed to websocket subscribers.
const (
	MessageInitial = "initial"
	MessageEvent   = "event"
	MessageClear   = "clear"
)

// StreamMessage is the envelope for every frame sent over the live stream.
type StreamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// EncodeInitial builds the snapshot frame sent to a subscriber right after
// it connects. A nil slice encodes as an empty array, not null.
func EncodeInitial(events []HookEvent) ([]byte, error) {
	if events == nil {
		events = []HookEvent{}
	}
	return json.Marshal(StreamMessage{Type: MessageInitial, Data: events})
}

// EncodeEvent builds the frame for a new or updated event. Consumers key on
// the event id, so the same frame kind serves both cases.
func EncodeEvent(ev HookEvent) ([]byte, error) {
	return json.Marshal(StreamMessage{Type: MessageEvent, Data: ev})
}

// EncodeClear builds the frame telling subscribers to discard held events.
func EncodeClear() ([]byte, error) {
	return json.Marshal(StreamMessage{Type: MessageClear})
}
