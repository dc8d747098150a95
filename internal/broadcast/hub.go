// Package broadcast fans hook event notifications out to live stream
// subscribers. The hub delivers three frame kinds: an initial snapshot on
// subscribe, per-event frames for new and updated events, and a clear frame
// when history is reset. Delivery is FIFO per subscriber; a subscriber that
// cannot keep up or whose connection breaks is dropped without affecting the
// others.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/event"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/metrics"
)

const (
	// writeWait is the deadline for a single frame write.
	writeWait = 10 * time.Second
	// pingPeriod is the keepalive interval. Must be shorter than the
	// client's read deadline.
	pingPeriod = 30 * time.Second
	// sendQueueSize bounds each subscriber's outbound queue. Overflow
	// drops the subscriber rather than blocking the publisher.
	sendQueueSize = 256
)

// Conn is the subset of *websocket.Conn the hub writes through. Tests
// substitute an in-memory implementation.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// SnapshotFunc supplies the events for a new subscriber's initial frame.
type SnapshotFunc func(ctx context.Context) ([]event.HookEvent, error)

// Subscriber is one registered live connection. It is owned by the hub from
// Subscribe until Unsubscribe.
type Subscriber struct {
	conn Conn
	send chan []byte
}

// Hub maintains the subscriber set and broadcasts frames to it.
type Hub struct {
	mu       sync.Mutex
	subs     map[*Subscriber]struct{}
	closed   bool
	snapshot SnapshotFunc
	wg       sync.WaitGroup
}

// NewHub returns a hub that builds initial snapshots via snapshot. A nil
// snapshot func sends an empty initial frame.
func NewHub(snapshot SnapshotFunc) *Hub {
	return &Hub{
		subs:     make(map[*Subscriber]struct{}),
		snapshot: snapshot,
	}
}

// Subscribe registers conn and queues its initial snapshot frame. The
// returned subscriber must be passed to Unsubscribe when the connection
// ends. Returns nil if the hub is already closed.
func (h *Hub) Subscribe(conn Conn) *Subscriber {
	var events []event.HookEvent
	if h.snapshot != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		snap, err := h.snapshot(ctx)
		cancel()
		if err != nil {
			log.WithError(err).Warn("failed to build initial snapshot for subscriber")
		} else {
			events = snap
		}
	}
	frame, err := event.EncodeInitial(events)
	if err != nil {
		log.WithError(err).Error("failed to encode initial frame")
		frame = []byte(`{"type":"initial","data":[]}`)
	}

	sub := &Subscriber{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
	sub.send <- frame

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.subs[sub] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()

	metrics.SubscribersConnected.Inc()
	metrics.BroadcastFrames.WithLabelValues(event.MessageInitial).Inc()
	go h.writePump(sub)
	return sub
}

// Unsubscribe removes sub from the hub and closes its connection. It is
// idempotent; unsubscribing an unknown or already-removed subscriber is a
// no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.subs[sub]
	if ok {
		delete(h.subs, sub)
		close(sub.send)
	}
	h.mu.Unlock()
	if ok {
		metrics.SubscribersConnected.Dec()
		_ = sub.conn.Close()
	}
}

// Publish queues an event frame for every current subscriber.
func (h *Hub) Publish(ev event.HookEvent) {
	h.publishEvent(ev)
}

// PublishUpdate queues a frame carrying the enriched record. It uses the
// same frame kind as Publish; consumers replace the entry with the matching
// id, or ignore unknown ids.
func (h *Hub) PublishUpdate(ev event.HookEvent) {
	h.publishEvent(ev)
}

func (h *Hub) publishEvent(ev event.HookEvent) {
	frame, err := event.EncodeEvent(ev)
	if err != nil {
		log.WithError(err).WithField("event_id", ev.ID).Error("failed to encode event frame")
		return
	}
	h.broadcast(frame, event.MessageEvent)
}

// PublishClear tells every subscriber to discard its held events.
func (h *Hub) PublishClear() {
	frame, err := event.EncodeClear()
	if err != nil {
		log.WithError(err).Error("failed to encode clear frame")
		return
	}
	h.broadcast(frame, event.MessageClear)
}

// broadcast enqueues frame for every subscriber. Enqueueing never blocks: a
// subscriber whose queue is full is dropped so one slow consumer cannot
// stall the rest.
func (h *Hub) broadcast(frame []byte, kind string) {
	var overflowed []*Subscriber
	h.mu.Lock()
	for sub := range h.subs {
		select {
		case sub.send <- frame:
		default:
			overflowed = append(overflowed, sub)
		}
	}
	h.mu.Unlock()

	metrics.BroadcastFrames.WithLabelValues(kind).Inc()
	for _, sub := range overflowed {
		log.Warn("dropping stream subscriber: send queue overflow")
		metrics.SubscribersDropped.Inc()
		h.Unsubscribe(sub)
	}
}

// writePump is the single writer for one subscriber's connection. It drains
// the send queue and emits pings until the queue is closed or a write fails.
func (h *Hub) writePump(sub *Subscriber) {
	defer h.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sub.send:
			if !ok {
				_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.WithError(err).Debug("stream write failed, dropping subscriber")
				metrics.SubscribersDropped.Inc()
				h.Unsubscribe(sub)
				h.drain(sub)
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.SubscribersDropped.Inc()
				h.Unsubscribe(sub)
				h.drain(sub)
				return
			}
		}
	}
}

// drain consumes leftover frames so publishers that already queued frames
// for this subscriber are not referenced after unsubscription.
func (h *Hub) drain(sub *Subscriber) {
	for range sub.send {
	}
}

// Len returns the number of currently registered subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close unsubscribes everyone and rejects future subscriptions. It waits for
// the writer pumps to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.Unsubscribe(sub)
	}
	h.wg.Wait()
}
