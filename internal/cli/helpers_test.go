package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Keep the developer's real secrets out of config tests.
	getenv = func(string) string { return "" }
	os.Exit(m.Run())
}

// botDir is a directory with denylists, a replied-ids log and a config.
type botDir struct {
	dir    string
	config string
	dedup  string
	feed   string
}

// newBotDir writes a complete bot directory. extra is appended to the
// config YAML.
func newBotDir(t *testing.T, extra string) botDir {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	write("blockedsubreddits.txt", "testsub\n")
	write("blockedusers.txt", "troll\n")
	write("triggerwords.txt", "slur1\nslur2\n")
	dedupPath := write("replyids.txt", "\nold1")
	feedPath := write("comments.jsonl", strings.Join([]string{
		`{"id":"old1","origin":"other","author":"alice","body":"slur1"}`,
		`{"id":"c1","origin":"other","author":"alice","body":"this is a slur1 example"}`,
		`{"id":"c2","origin":"testsub","author":"bob","body":"slur2"}`,
		`{"id":"c3","origin":"other","author":"carol","body":"nothing here"}`,
	}, "\n")+"\n")

	cfg := "bot:\n  username: replyguardbot\nclassifier: word\nfeed:\n  path: comments.jsonl\n  poll_interval: 10ms\n" + extra
	return botDir{
		dir:    dir,
		config: write("replyguard.yaml", cfg),
		dedup:  dedupPath,
		feed:   feedPath,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
