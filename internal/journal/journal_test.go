package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func TestOpen_CreatesDatabaseWithPragmas(t *testing.T) {
	j, path := openTest(t)

	_, err := os.Stat(path)
	require.NoError(t, err)

	ctx := context.Background()
	mode, err := j.pragma(ctx, "journal_mode")
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)

	version, err := j.pragma(ctx, "user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestOpen_SchemaCreatesEventIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	for i := 0; i < 2; i++ {
		j, err := Open(path)
		require.NoError(t, err)

		var name string
		err = j.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_outcomes_event'`).Scan(&name)
		require.NoError(t, err, "open %d", i)
		assert.Equal(t, "idx_outcomes_event", name)

		version, err := j.pragma(context.Background(), "user_version")
		require.NoError(t, err)
		assert.Equal(t, "1", version)
		require.NoError(t, j.Close())
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	for i := 0; i < 3; i++ {
		j, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, j.Close())
	}
}

func TestWriteEntry_RoundTripAndOrdering(t *testing.T) {
	j, _ := openTest(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, j.WriteRun(ctx, Run{ID: "run-a", StartedAt: now, Classifier: "word"}))
	require.NoError(t, j.WriteRun(ctx, Run{ID: "run-a", StartedAt: now}), "duplicate run is a no-op")

	require.NoError(t, j.WriteEntry(ctx, Entry{
		RunID: "run-a", Seq: 2, EventID: "c2", Origin: "news",
		Terms: []string{"slur1"}, Result: "rejected", Path: []string{"acting", "failed", "idle"},
		Error: "reply not permitted", RecordedAt: now,
	}))
	require.NoError(t, j.WriteEntry(ctx, Entry{
		RunID: "run-a", Seq: 1, EventID: "c1", Origin: "news", Author: "alice",
		Terms: []string{"slur1", "slur2"}, Result: "recorded",
		Path: []string{"acting", "recording", "idle"}, RecordedAt: now,
	}))

	entries, err := j.ReadEntries(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, "alice", entries[0].Author)
	assert.Equal(t, []string{"slur1", "slur2"}, entries[0].Terms)
	assert.Equal(t, []string{"acting", "recording", "idle"}, entries[0].Path)
	assert.True(t, now.Equal(entries[0].RecordedAt))

	assert.Equal(t, "", entries[1].Author)
	assert.Equal(t, "reply not permitted", entries[1].Error)

	runs, err := j.ReadRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "word", runs[0].Classifier)
	assert.False(t, runs[0].DryRun)
}

func TestWriteEntry_DuplicateSeqIgnored(t *testing.T) {
	j, _ := openTest(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, j.WriteRun(ctx, Run{ID: "r", StartedAt: now}))
	e := Entry{RunID: "r", Seq: 1, EventID: "c1", Origin: "o", Result: "recorded", RecordedAt: now}
	require.NoError(t, j.WriteEntry(ctx, e))
	e.EventID = "other"
	require.NoError(t, j.WriteEntry(ctx, e))

	entries, err := j.ReadEntries(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].EventID)
	assert.Empty(t, entries[0].Terms)
}

func TestWriteEntry_UnknownRunRejected(t *testing.T) {
	j, _ := openTest(t)
	err := j.WriteEntry(context.Background(), Entry{RunID: "missing", Seq: 1, RecordedAt: time.Now()})
	assert.Error(t, err)
}

func TestReadEntries_Filters(t *testing.T) {
	j, _ := openTest(t)
	ctx := context.Background()
	now := time.Now()

	for _, run := range []string{"r1", "r2"} {
		require.NoError(t, j.WriteRun(ctx, Run{ID: run, StartedAt: now}))
		for seq, id := range []string{"a", "b", "c"} {
			require.NoError(t, j.WriteEntry(ctx, Entry{
				RunID: run, Seq: int64(seq + 1), EventID: id, Origin: "o", Result: "dry_run", RecordedAt: now,
			}))
		}
	}

	byRun, err := j.ReadEntries(ctx, Query{RunID: "r2"})
	require.NoError(t, err)
	assert.Len(t, byRun, 3)

	byEvent, err := j.ReadEntries(ctx, Query{EventID: "B"})
	require.NoError(t, err)
	require.Len(t, byEvent, 2)
	assert.Equal(t, "r1", byEvent[0].RunID)

	limited, err := j.ReadEntries(ctx, Query{Limit: 4})
	require.NoError(t, err)
	assert.Len(t, limited, 4)

	none, err := j.ReadEntries(ctx, Query{EventID: "zzz"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
