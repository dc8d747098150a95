// Package ingest orchestrates the event pipeline: it validates and persists
// incoming hook events, broadcasts them to live subscribers, and schedules
// best-effort asynchronous enrichment.
package ingest

import (
	"context"

	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/errors"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/event"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/metrics"
)

// EventStore is the persistence surface the service depends on.
type EventStore interface {
	Append(ctx context.Context, ev event.HookEvent) (event.HookEvent, error)
	UpdateSummary(ctx context.Context, id int64, summary string) (bool, error)
	Recent(ctx context.Context, limit int) ([]event.HookEvent, error)
	Clear(ctx context.Context) error
	FilterOptions(ctx context.Context) (event.FilterOptions, error)
}

// Publisher is the broadcast surface the service depends on.
type Publisher interface {
	Publish(ev event.HookEvent)
	PublishUpdate(ev event.HookEvent)
	PublishClear()
}

// Service is the single public entry surface for the pipeline.
type Service struct {
	store    EventStore
	pub      Publisher
	enricher *Enricher
}

// NewService wires the pipeline together. enricher may be nil, in which case
// events are never summarized.
func NewService(store EventStore, pub Publisher, enricher *Enricher) *Service {
	return &Service{store: store, pub: pub, enricher: enricher}
}

// Submit validates and persists raw, broadcasts it, and fires off
// enrichment without waiting for it. The returned event carries its assigned
// id and timestamp but no summary yet; the summary, if any, arrives later on
// the stream.
func (s *Service) Submit(ctx context.Context, raw event.HookEvent) (event.HookEvent, error) {
	if missing := raw.MissingFields(); len(missing) > 0 {
		metrics.ValidationRejections.Inc()
		return event.HookEvent{}, errors.Validation(missing)
	}
	stored, err := s.store.Append(ctx, raw)
	if err != nil {
		return event.HookEvent{}, errors.Persistence(err)
	}
	metrics.EventsIngested.Inc()
	s.pub.Publish(stored)
	if s.enricher != nil {
		s.enricher.Enrich(stored)
	}
	return stored, nil
}

// Query returns up to limit recent events, oldest first.
func (s *Service) Query(ctx context.Context, limit int) ([]event.HookEvent, error) {
	return s.store.Recent(ctx, limit)
}

// FilterOptions returns the distinct filterable values across stored events.
func (s *Service) FilterOptions(ctx context.Context) (event.FilterOptions, error) {
	return s.store.FilterOptions(ctx)
}

// ClearAll destructively empties the store and tells every subscriber to
// discard its held events.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return errors.Persistence(err)
	}
	s.pub.PublishClear()
	return nil
}

// Close stops accepting new enrichment work and waits for in-flight calls.
func (s *Service) Close() {
	if s.enricher != nil {
		s.enricher.Close()
	}
}
