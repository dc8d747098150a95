package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/event"
)

func newTestStore(t *testing.T, maxRecent int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "events.db"), maxRecent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testEvent(app string) event.HookEvent {
	return event.HookEvent{
		SourceApp:     app,
		SessionID:     "s1",
		HookEventType: "PreToolUse",
		Payload:       map[string]any{"tool": "Bash", "command": "ls"},
	}
}

func TestAppend_AssignsIncreasingIDs(t *testing.T) {
	s := newTestStore(t, 100)
	ctx := context.Background()

	var lastID int64
	for i := 0; i < 10; i++ {
		stored, err := s.Append(ctx, testEvent("agent-1"))
		require.NoError(t, err)
		assert.Greater(t, stored.ID, lastID, "ids must be strictly increasing")
		assert.NotZero(t, stored.Timestamp, "timestamp must be assigned")
		lastID = stored.ID
	}
}

func TestAppend_KeepsSuppliedTimestamp(t *testing.T) {
	s := newTestStore(t, 100)

	ev := testEvent("agent-1")
	ev.Timestamp = 1700000000000
	stored, err := s.Append(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), stored.Timestamp)
}

func TestAppend_RoundTripsPayloadAndChat(t *testing.T) {
	s := newTestStore(t, 100)
	ctx := context.Background()

	ev := testEvent("agent-1")
	ev.Chat = []map[string]any{
		{"role": "user", "content": "hello"},
		{"role": "assistant", "content": "hi"},
	}
	stored, err := s.Append(ctx, ev)
	require.NoError(t, err)

	events, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "Bash", got.Payload["tool"])
	require.Len(t, got.Chat, 2)
	assert.Equal(t, "assistant", got.Chat[1]["role"])
	assert.Empty(t, got.Summary)
}

func TestRecent_ReturnsSuffixOldestFirst(t *testing.T) {
	s := newTestStore(t, 100)
	ctx := context.Background()

	for i := 1; i <= 105; i++ {
		ev := testEvent(fmt.Sprintf("agent-%d", i))
		_, err := s.Append(ctx, ev)
		require.NoError(t, err)
	}

	events, err := s.Recent(ctx, 100)
	require.NoError(t, err)
	require.Len(t, events, 100)
	assert.Equal(t, int64(6), events[0].ID, "oldest returned event")
	assert.Equal(t, int64(105), events[99].ID, "newest returned event")
	for i := 1; i < len(events); i++ {
		assert.Equal(t, events[i-1].ID+1, events[i].ID, "ascending id order")
	}
}

func TestRecent_ClampsLimit(t *testing.T) {
	s := newTestStore(t, 5)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := s.Append(ctx, testEvent("agent-1"))
		require.NoError(t, err)
	}

	events, err := s.Recent(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, events, 5, "limit above the configured maximum is clamped")

	events, err = s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, 5, "zero limit means the configured maximum")

	events, err = s.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestUpdateSummary_FirstWriterWins(t *testing.T) {
	s := newTestStore(t, 100)
	ctx := context.Background()

	stored, err := s.Append(ctx, testEvent("agent-1"))
	require.NoError(t, err)

	updated, err := s.UpdateSummary(ctx, stored.ID, "runs ls in the project root")
	require.NoError(t, err)
	assert.True(t, updated)

	// Second attempt must not overwrite.
	updated, err = s.UpdateSummary(ctx, stored.ID, "a different summary")
	require.NoError(t, err)
	assert.False(t, updated)

	events, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "runs ls in the project root", events[0].Summary)
}

func TestUpdateSummary_UnknownIDAndEmptySummary(t *testing.T) {
	s := newTestStore(t, 100)
	ctx := context.Background()

	updated, err := s.UpdateSummary(ctx, 9999, "text")
	require.NoError(t, err)
	assert.False(t, updated, "unknown id is a no-op")

	stored, err := s.Append(ctx, testEvent("agent-1"))
	require.NoError(t, err)
	updated, err = s.UpdateSummary(ctx, stored.ID, "")
	require.NoError(t, err)
	assert.False(t, updated, "empty summary is never written")
}

func TestClear_EmptiesStoreAndKeepsIDsIncreasing(t *testing.T) {
	s := newTestStore(t, 100)
	ctx := context.Background()

	var lastID int64
	for i := 0; i < 3; i++ {
		stored, err := s.Append(ctx, testEvent("agent-1"))
		require.NoError(t, err)
		lastID = stored.ID
	}

	require.NoError(t, s.Clear(ctx))

	events, err := s.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, events)

	stored, err := s.Append(ctx, testEvent("agent-1"))
	require.NoError(t, err)
	assert.Greater(t, stored.ID, lastID, "ids keep increasing across a clear")
}

func TestFilterOptions(t *testing.T) {
	s := newTestStore(t, 100)
	ctx := context.Background()

	opts, err := s.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, opts.SourceApps)
	assert.NotNil(t, opts.SourceApps, "empty store yields empty, not nil, slices")

	seed := []event.HookEvent{
		{SourceApp: "beta", SessionID: "s2", HookEventType: "Stop", Payload: map[string]any{}},
		{SourceApp: "alpha", SessionID: "s1", HookEventType: "PreToolUse", Payload: map[string]any{}},
		{SourceApp: "alpha", SessionID: "s1", HookEventType: "Stop", Payload: map[string]any{}},
	}
	for _, ev := range seed {
		_, err = s.Append(ctx, ev)
		require.NoError(t, err)
	}

	opts, err = s.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, opts.SourceApps)
	assert.Equal(t, []string{"s1", "s2"}, opts.SessionIDs)
	assert.Equal(t, []string{"PreToolUse", "Stop"}, opts.EventTypes)
}

func TestAppend_ConcurrentSubmitters(t *testing.T) {
	s := newTestStore(t, 200)
	ctx := context.Background()

	const n = 50
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := s.Append(ctx, testEvent("agent-1"))
			errCh <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errCh)
	}

	events, err := s.Recent(ctx, 200)
	require.NoError(t, err)
	require.Len(t, events, n)
	seen := make(map[int64]bool, n)
	for _, ev := range events {
		assert.False(t, seen[ev.ID], "duplicate id %d", ev.ID)
		seen[ev.ID] = true
	}
}
