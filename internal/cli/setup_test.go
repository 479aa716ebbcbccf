package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replyguard/internal/config"
)

func inputsConfig(t *testing.T, bot botDir) *config.Config {
	t.Helper()
	cfg, err := config.LoadWithEnv(bot.config, getenv)
	require.NoError(t, err)
	return cfg
}

func TestLoadInputs_AllPresent(t *testing.T) {
	bot := newBotDir(t, "")

	in := loadInputs(inputsConfig(t, bot))
	defer in.Store.Close()

	assert.Empty(t, in.Warnings)
	assert.Equal(t, 1, in.Store.Loaded())
	assert.True(t, in.Store.Contains("old1"))
	assert.Equal(t, 2, in.Sets.Terms.Len())
}

func TestLoadInputs_MissingDedupLogWarns(t *testing.T) {
	bot := newBotDir(t, "")
	require.NoError(t, os.Remove(bot.dedup))

	in := loadInputs(inputsConfig(t, bot))
	defer in.Store.Close()

	require.Len(t, in.Warnings, 1)
	assert.Equal(t, "dedup", in.Warnings[0].Source)
	assert.Equal(t, "replied-ids log not found", in.Warnings[0].Problem)
	assert.Equal(t, 0, in.Store.Len())
}

func TestLoadInputs_UnreadableDedupLogWarns(t *testing.T) {
	bot := newBotDir(t, "")
	require.NoError(t, os.Remove(bot.dedup))
	require.NoError(t, os.Mkdir(bot.dedup, 0o755))

	in := loadInputs(inputsConfig(t, bot))
	require.NotNil(t, in.Store)

	require.Len(t, in.Warnings, 1)
	w := in.Warnings[0]
	assert.Equal(t, "dedup", w.Source)
	assert.Equal(t, bot.dedup, w.Path)
	assert.Contains(t, w.Problem, "replied-ids log unreadable")
	assert.Equal(t, "comments answered by earlier runs may be answered again", w.Consequence)
	assert.Equal(t, 0, in.Store.Len())
}

func TestRunUnreadableDedupLogAsksFirst(t *testing.T) {
	bot := newBotDir(t, "dry_run: true\n")
	require.NoError(t, os.Remove(bot.dedup))
	require.NoError(t, os.Mkdir(filepath.Join(bot.dir, "replyids.txt"), 0o755))

	out, err := executeRun(context.Background(), &RootOptions{Config: bot.config}, "n\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, errDeclined)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	stderr := out.stderr.String()
	assert.Contains(t, stderr, "replied-ids log unreadable")
	assert.Contains(t, stderr, "Continue (y/n): ")
}
