package dedup

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// flakyFile fails every write until failWrites reaches zero.
type flakyFile struct {
	failWrites int
	written    *strings.Builder
}

func (f *flakyFile) WriteString(s string) (int, error) {
	if f.failWrites > 0 {
		f.failWrites--
		return 0, errors.New("disk full")
	}
	return f.written.WriteString(s)
}

func (f *flakyFile) Sync() error  { return nil }
func (f *flakyFile) Close() error { return nil }

func TestOpen_LoadsExistingIdentifiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replyids.txt")
	require.NoError(t, os.WriteFile(path, []byte("id1\nID2\n\nid3\n"), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 3, s.Loaded())
	assert.True(t, s.Contains("id1"))
	assert.True(t, s.Contains("id2"))
	assert.True(t, s.Contains("ID3"))
	assert.False(t, s.Contains("id4"))
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestAppend_WritesNewlinePrefixedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replyids.txt")
	require.NoError(t, os.WriteFile(path, []byte("id1"), 0644))

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Append("C1"))
	require.NoError(t, s.Append("c2"))
	require.NoError(t, s.Close())

	assert.Equal(t, "id1\nc1\nc2", readLog(t, path))
}

func TestAppend_VisibleBeforeDurable(t *testing.T) {
	file := &flakyFile{failWrites: 1, written: &strings.Builder{}}
	s := New("unused", WithOpener(func(string) (LogFile, error) { return file, nil }))

	err := s.Append("c1")
	require.Error(t, err)
	assert.True(t, s.Contains("c1"), "failed durable write must not drop the in-memory record")
	assert.Equal(t, 1, s.Pending())

	require.NoError(t, s.Flush())
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, "\nc1", file.written.String())
}

func TestAppend_OpenFailureKeepsPending(t *testing.T) {
	s := New("unused", WithOpener(func(string) (LogFile, error) {
		return nil, errors.New("permission denied")
	}))

	require.Error(t, s.Append("c1"))
	require.Error(t, s.Append("c2"))
	assert.True(t, s.Contains("c1"))
	assert.True(t, s.Contains("c2"))

	err := s.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush c1")
	assert.Contains(t, err.Error(), "flush c2")
	assert.Equal(t, 2, s.Pending())

	require.Error(t, s.Close())
}

func TestAppend_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replyids.txt")
	s := New(path)

	require.NoError(t, s.Append("c1"))
	require.NoError(t, s.Append("C1"))
	require.NoError(t, s.Close())

	assert.True(t, s.Contains("c1"))
	assert.Equal(t, 1, s.Len())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.True(t, reopened.Contains("c1"))
	assert.Equal(t, 1, reopened.Loaded())
}

func TestAppend_PreservesPriorRecordsAfterPartialWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replyids.txt")
	// "ab" simulates a record whose write was cut short.
	require.NoError(t, os.WriteFile(path, []byte("id1\nab"), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append("c9"))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.True(t, reopened.Contains("id1"))
	assert.True(t, reopened.Contains("c9"))
	assert.Equal(t, "id1\nab\nc9", readLog(t, path))
}

func TestAppend_EmptyIdentifier(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "x"))
	assert.Error(t, s.Append("  "))
	assert.Equal(t, 0, s.Len())
}

func TestAppend_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.txt")
	s := New(path)
	require.NoError(t, s.Append("c1"))
	require.NoError(t, s.Close())
	assert.Equal(t, "\nc1", readLog(t, path))
}

func TestClose_NoFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-written"))
	assert.NoError(t, s.Close())
}
