package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnceRemovesOnlyStaleEntries(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.mp3")
	fresh := filepath.Join(dir, "fresh.mp3")
	require.NoError(t, os.WriteFile(stale, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("b"), 0o644))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	j := New(dir, 30*time.Minute)

	assert.Equal(t, 1, j.RunOnce())
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

func TestRunOnceMissingDir(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "missing"), time.Minute)
	assert.Equal(t, 0, j.RunOnce())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	j := New(t.TempDir(), time.Minute)
	assert.Error(t, j.Start("not a schedule"))
}

func TestStartAndStop(t *testing.T) {
	j := New(t.TempDir(), time.Minute)
	require.NoError(t, j.Start(DefaultSchedule))
	j.Stop()
}
