package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeMinimalConfig(t *testing.T, dir string) {
	t.Helper()
	content := []byte("storage:\n  sqlitePath: " + filepath.Join(dir, "memoryd.db") + "\n  vectorIndexPath: " + filepath.Join(dir, "vectors.bolt") + "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "development.yaml"), content, 0o644))
}

func TestRunCheckValidatesWithoutOpeningDatabase(t *testing.T) {
	dir := t.TempDir()
	writeMinimalConfig(t, dir)

	code := run([]string{"-config-dir", dir, "-env", "development", "-check"})
	require.Equal(t, exitSuccess, code)

	_, err := os.Stat(filepath.Join(dir, "memoryd.db"))
	require.True(t, os.IsNotExist(err), "check mode must not create the database file")
}

func TestRunAppliesMigrationsAndCreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	writeMinimalConfig(t, dir)

	code := run([]string{"-config-dir", dir, "-env", "development"})
	require.Equal(t, exitSuccess, code)

	_, err := os.Stat(filepath.Join(dir, "memoryd.db"))
	require.NoError(t, err)
}

func TestRunRejectsUnexpectedArgument(t *testing.T) {
	dir := t.TempDir()
	writeMinimalConfig(t, dir)

	code := run([]string{"-config-dir", dir, "-env", "development", "extra-arg"})
	require.Equal(t, exitUsage, code)
}

func TestRunFailsOnUnparsableFlag(t *testing.T) {
	code := run([]string{"-not-a-real-flag"})
	require.Equal(t, exitUsage, code)
}
