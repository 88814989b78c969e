package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFlags(t *testing.T, path string, dry bool) {
	t.Helper()
	oldPath, oldDry := *configPath, *dryRun
	*configPath, *dryRun = path, dry
	t.Cleanup(func() {
		*configPath, *dryRun = oldPath, oldDry
	})
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := "database:\n" +
		"  driver: sqlite\n" +
		"  path: " + filepath.Join(dir, "sweep.db") + "\n" +
		"  auto_migrate: true\n" +
		"telegram:\n" +
		"  bot_token: \"\"\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_MissingConfigReturnsError(t *testing.T) {
	withFlags(t, filepath.Join(t.TempDir(), "missing.yaml"), false)

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_UnsupportedDriverReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o600))
	withFlags(t, path, false)

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

func TestRun_EmptyDatabase(t *testing.T) {
	path := writeConfig(t)

	withFlags(t, path, true)
	require.NoError(t, run())

	withFlags(t, path, false)
	require.NoError(t, run())
}
