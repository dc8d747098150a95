// Package store persists hook events in a local SQLite database. It is the
// single owner of event identity: ids are assigned by the database at insert
// time and are strictly increasing in insertion order.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/event"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_app TEXT NOT NULL,
	session_id TEXT NOT NULL,
	hook_event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	chat TEXT,
	summary TEXT,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_source_app ON events(source_app);
CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
`

// Store is a SQLite-backed event log.
type Store struct {
	db        *sql.DB
	maxRecent int
}

// Open opens (creating if necessary) the SQLite database at path and ensures
// the schema exists. maxRecent clamps the limit accepted by Recent.
func Open(path string, maxRecent int) (*Store, error) {
	if maxRecent <= 0 {
		maxRecent = 100
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent submits.
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db, maxRecent: maxRecent}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append persists ev and returns it with its assigned id. The timestamp is
// set to the current time in milliseconds when the caller left it zero.
func (s *Store) Append(ctx context.Context, ev event.HookEvent) (event.HookEvent, error) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return event.HookEvent{}, fmt.Errorf("encode payload: %w", err)
	}
	var chat any
	if len(ev.Chat) > 0 {
		encoded, errChat := json.Marshal(ev.Chat)
		if errChat != nil {
			return event.HookEvent{}, fmt.Errorf("encode chat: %w", errChat)
		}
		chat = string(encoded)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (source_app, session_id, hook_event_type, payload, chat, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.SourceApp, ev.SessionID, ev.HookEventType, string(payload), chat, ev.Timestamp)
	if err != nil {
		return event.HookEvent{}, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return event.HookEvent{}, fmt.Errorf("read inserted id: %w", err)
	}
	ev.ID = id
	return ev, nil
}

// UpdateSummary sets the summary on the matching record if and only if it
// exists and has no summary yet. It reports whether the update took effect,
// so repeated calls for the same id stay idempotent and a second enrichment
// never overwrites the first.
func (s *Store) UpdateSummary(ctx context.Context, id int64, summary string) (bool, error) {
	if summary == "" {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET summary = ? WHERE id = ? AND (summary IS NULL OR summary = '')`,
		summary, id)
	if err != nil {
		return false, fmt.Errorf("update summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read rows affected: %w", err)
	}
	return n > 0, nil
}

// Recent returns up to limit most-recently-appended events, oldest first.
// The limit is clamped to the configured maximum.
func (s *Store) Recent(ctx context.Context, limit int) ([]event.HookEvent, error) {
	if limit <= 0 || limit > s.maxRecent {
		limit = s.maxRecent
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_app, session_id, hook_event_type, payload, chat, summary, timestamp
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []event.HookEvent
	for rows.Next() {
		ev, errScan := scanEvent(rows)
		if errScan != nil {
			return nil, errScan
		}
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent events: %w", err)
	}
	// Query returns newest first; callers want insertion order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// Clear removes all stored events. Identity assignment keeps increasing
// across a clear because AUTOINCREMENT never reuses ids.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

// FilterOptions returns the distinct source apps, session ids, and event
// types present in the store, each sorted ascending.
func (s *Store) FilterOptions(ctx context.Context) (event.FilterOptions, error) {
	opts := event.FilterOptions{
		SourceApps: []string{},
		SessionIDs: []string{},
		EventTypes: []string{},
	}
	queries := []struct {
		sql  string
		dest *[]string
	}{
		{`SELECT DISTINCT source_app FROM events ORDER BY source_app`, &opts.SourceApps},
		{`SELECT DISTINCT session_id FROM events ORDER BY session_id`, &opts.SessionIDs},
		{`SELECT DISTINCT hook_event_type FROM events ORDER BY hook_event_type`, &opts.EventTypes},
	}
	for _, q := range queries {
		rows, err := s.db.QueryContext(ctx, q.sql)
		if err != nil {
			return event.FilterOptions{}, fmt.Errorf("query filter options: %w", err)
		}
		for rows.Next() {
			var v string
			if errScan := rows.Scan(&v); errScan != nil {
				_ = rows.Close()
				return event.FilterOptions{}, fmt.Errorf("scan filter option: %w", errScan)
			}
			*q.dest = append(*q.dest, v)
		}
		errRows := rows.Err()
		_ = rows.Close()
		if errRows != nil {
			return event.FilterOptions{}, fmt.Errorf("iterate filter options: %w", errRows)
		}
	}
	return opts, nil
}

func scanEvent(rows *sql.Rows) (event.HookEvent, error) {
	var (
		ev      event.HookEvent
		payload string
		chat    sql.NullString
		summary sql.NullString
	)
	if err := rows.Scan(&ev.ID, &ev.SourceApp, &ev.SessionID, &ev.HookEventType, &payload, &chat, &summary, &ev.Timestamp); err != nil {
		return event.HookEvent{}, fmt.Errorf("scan event: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
		return event.HookEvent{}, fmt.Errorf("decode payload for event %d: %w", ev.ID, err)
	}
	if chat.Valid && chat.String != "" {
		if err := json.Unmarshal([]byte(chat.String), &ev.Chat); err != nil {
			return event.HookEvent{}, fmt.Errorf("decode chat for event %d: %w", ev.ID, err)
		}
	}
	if summary.Valid {
		ev.Summary = summary.String
	}
	return ev, nil
}
