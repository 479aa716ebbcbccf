package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replyguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

const liveConfig = `
bot:
  username: RespectBot
reddit:
  client_id: abc
  client_secret: s3cret
  password: hunter2
  subreddit: news
  poll_interval: 5s
denylist:
  origins: lists/origins.txt
  terms: /etc/replyguard/terms.txt
dedup:
  path: state/replyids.txt
classifier: word
reply_timeout: 30s
`

func TestLoad_FileDefaultsAndPaths(t *testing.T) {
	path := writeConfig(t, liveConfig)
	dir := filepath.Dir(path)

	c, err := LoadWithEnv(path, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "RespectBot", c.Bot.Username)
	assert.Equal(t, "replyguard/1.0 by /u/RespectBot", c.Bot.UserAgent)
	assert.Equal(t, "news", c.Reddit.Subreddit)
	assert.Equal(t, 5*time.Second, c.Reddit.PollInterval)
	assert.Equal(t, 16*time.Second, c.Reddit.MaxBackoff)
	assert.Equal(t, 30*time.Second, c.ReplyTimeout)
	assert.Equal(t, "word", c.Classifier)

	assert.Equal(t, filepath.Join(dir, "lists/origins.txt"), c.Denylist.Origins)
	assert.Equal(t, "/etc/replyguard/terms.txt", c.Denylist.Terms)
	assert.Equal(t, "blockedusers.txt", c.Denylist.Authors, "defaults are applied after path resolution")
	assert.Equal(t, filepath.Join(dir, "state/replyids.txt"), c.Dedup.Path)

	require.NoError(t, c.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	c, err := LoadWithEnv("", noEnv)
	require.NoError(t, err)

	assert.Equal(t, "all", c.Reddit.Subreddit)
	assert.Equal(t, "stub", c.Classifier)
	assert.Equal(t, "replyids.txt", c.Dedup.Path)
	assert.Equal(t, "triggerwords.txt", c.Denylist.Terms)
}

func TestLoad_EmptyFile(t *testing.T) {
	c, err := LoadWithEnv(writeConfig(t, ""), noEnv)
	require.NoError(t, err)
	assert.Equal(t, "all", c.Reddit.Subreddit)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	_, err := LoadWithEnv(writeConfig(t, "bot:\n  usernme: typo\n"), noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usernme")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), noEnv)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	env := map[string]string{
		EnvClientSecret: "from-env",
		EnvPassword:     "pw-env",
	}
	c, err := LoadWithEnv(writeConfig(t, liveConfig), func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.Reddit.ClientSecret)
	assert.Equal(t, "pw-env", c.Reddit.Password)
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing username", func(c *Config) { c.Bot.Username = ""; c.Bot.UserAgent = "" }, "username"},
		{"unknown classifier", func(c *Config) { c.Classifier = "regex" }, "classifier"},
		{"negative timeout", func(c *Config) { c.ReplyTimeout = -time.Second }, "reply_timeout"},
		{"backoff below poll", func(c *Config) { c.Reddit.MaxBackoff = time.Second }, "max_backoff"},
		{"bad subreddit", func(c *Config) { c.Reddit.Subreddit = "r/news" }, "subreddit"},
		{"live without credentials", func(c *Config) { c.Reddit.Password = "" }, "password"},
		{"empty dedup path", func(c *Config) { c.Dedup.Path = "" }, "path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadWithEnv(writeConfig(t, liveConfig), noEnv)
			require.NoError(t, err)
			tt.mutate(c)

			err = c.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Details, tt.want)
		})
	}
}

func TestValidate_DryRunWithFeedNeedsNoCredentials(t *testing.T) {
	c, err := LoadWithEnv(writeConfig(t, `
bot:
  username: bot
feed:
  path: events.jsonl
dry_run: true
`), noEnv)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.False(t, c.NeedsReddit())

	c.DryRun = false
	assert.True(t, c.NeedsReddit())
	assert.Error(t, c.Validate())
}

func TestRedacted(t *testing.T) {
	c, err := LoadWithEnv(writeConfig(t, liveConfig), noEnv)
	require.NoError(t, err)

	r := c.Redacted()
	assert.Equal(t, "REDACTED", r.Reddit.Password)
	assert.Equal(t, "REDACTED", r.Reddit.ClientSecret)
	assert.Equal(t, "hunter2", c.Reddit.Password)
}
