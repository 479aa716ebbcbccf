package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replyguard/internal/event"
)

func TestSlice_YieldsInOrderThenBlocks(t *testing.T) {
	s := NewSlice(
		event.Event{ID: "a"},
		event.Event{ID: "b"},
	)

	ctx := context.Background()
	ev, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", ev.ID)
	ev, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", ev.ID)
	assert.Equal(t, 0, s.Remaining())

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlice_PushWakesBlockedNext(t *testing.T) {
	s := NewSlice()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan event.Event, 1)
	go func() {
		ev, err := s.Next(ctx)
		if err == nil {
			got <- ev
		}
		close(got)
	}()

	time.Sleep(10 * time.Millisecond)
	s.Push(event.Event{ID: "late"})

	ev, ok := <-got
	require.True(t, ok)
	assert.Equal(t, "late", ev.ID)
}

func TestJSONL_ReadsAndTails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"id":"c1","origin":"news","author":"alice","body":"hi"}`+"\n"+
			"\n"+
			`{"id":"c2","origin":"news","author":null,"body":"x"}`+"\n"+
			`{"id":"c3","origin":`,
	), 0644))

	j, err := OpenJSONL(path, 5*time.Millisecond)
	require.NoError(t, err)
	defer j.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := j.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c1", ev.ID)
	name, ok := ev.AuthorName()
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	ev, err = j.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c2", ev.ID)
	assert.Nil(t, ev.Author)

	go func() {
		time.Sleep(20 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return
		}
		_, _ = f.WriteString(`"news","body":"late"}` + "\n")
		_ = f.Close()
	}()

	ev, err = j.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c3", ev.ID)
	assert.Equal(t, "late", ev.Body)
}

func TestJSONL_MalformedLineIsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"+`{"id":"ok"}`+"\n"), 0644))

	j, err := OpenJSONL(path, time.Millisecond)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	_, err = j.Next(ctx)
	assert.ErrorContains(t, err, "feed line 1")

	ev, err := j.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", ev.ID)
}

func TestJSONL_CancelAtEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	j, err := OpenJSONL(path, time.Millisecond)
	require.NoError(t, err)
	defer j.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = j.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenJSONL_Missing(t *testing.T) {
	_, err := OpenJSONL(filepath.Join(t.TempDir(), "nope.jsonl"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
