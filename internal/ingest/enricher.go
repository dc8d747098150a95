package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/event"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/metrics"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/summarizer"
)

// Enricher asks the summarization provider for a one-line summary of each
// event, best effort. It never reports failure to the submitter: every
// failure mode degrades to "no summary" with a diagnostic log line.
type Enricher struct {
	summarizer   summarizer.Summarizer
	store        EventStore
	pub          Publisher
	timeout      time.Duration
	engineerName string

	sem    *semaphore.Weighted
	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewEnricher builds an enricher. summ must be non-nil; callers that have no
// provider configured pass a nil *Enricher to NewService instead.
func NewEnricher(summ summarizer.Summarizer, store EventStore, pub Publisher, timeout time.Duration, maxConcurrent int, engineerName string) *Enricher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Enricher{
		summarizer:   summ,
		store:        store,
		pub:          pub,
		timeout:      timeout,
		engineerName: engineerName,
		sem:          semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Enrich schedules summarization for ev and returns immediately. The result,
// if any, is written through the store's summary guard and then broadcast as
// an update; duplicate enrichments of an already-summarized id are no-ops.
func (e *Enricher) Enrich(ev event.HookEvent) {
	if e.closed.Load() {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(ev)
	}()
}

func (e *Enricher) run(ev event.HookEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		metrics.Enrichments.WithLabelValues("skipped").Inc()
		return
	}
	defer e.sem.Release(1)

	logger := log.WithFields(log.Fields{
		"event_id":   ev.ID,
		"event_type": ev.HookEventType,
		"provider":   e.summarizer.Provider(),
	})

	prompt := summarizer.BuildPrompt(ev.HookEventType, ev.Payload, e.engineerName)
	text, err := e.summarizer.Summarize(ctx, prompt)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.Enrichments.WithLabelValues(outcome).Inc()
		logger.WithError(err).Warn("event enrichment failed")
		return
	}

	text = summarizer.CleanSummary(text)
	if text == "" {
		metrics.Enrichments.WithLabelValues("error").Inc()
		logger.Warn("event enrichment returned empty summary")
		return
	}

	// Fresh context: the summary is worth persisting even if the provider
	// call consumed most of the deadline.
	updateCtx, cancelUpdate := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelUpdate()
	updated, err := e.store.UpdateSummary(updateCtx, ev.ID, text)
	if err != nil {
		metrics.Enrichments.WithLabelValues("error").Inc()
		logger.WithError(err).Warn("failed to persist event summary")
		return
	}
	if !updated {
		// Record gone (cleared) or already summarized; first writer won.
		metrics.Enrichments.WithLabelValues("skipped").Inc()
		return
	}

	metrics.Enrichments.WithLabelValues("ok").Inc()
	ev.Summary = text
	e.pub.PublishUpdate(ev)
}

// Close stops new enrichment starts and waits for in-flight calls, each of
// which is already bounded by the per-call timeout.
func (e *Enricher) Close() {
	e.closed.Store(true)
	e.wg.Wait()
}
