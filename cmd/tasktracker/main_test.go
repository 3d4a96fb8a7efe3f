package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TASKS_FILE", filepath.Join(dir, "tasks.json"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func TestCommandsRoundTrip(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "add", "-p", "high", "Buy", "milk")
	require.NoError(t, err)
	assert.Equal(t, "added #1 Buy milk [vysoká]\n", out)

	out, err = run(t, "add", "Read book")
	require.NoError(t, err)
	assert.Equal(t, "added #2 Read book [střední]\n", out)

	out, err = run(t, "complete", "1")
	require.NoError(t, err)
	assert.Equal(t, "completed #1\n", out)

	out, err = run(t, "stats")
	require.NoError(t, err)
	assert.Equal(t, "total: 2\ncompleted: 1\npending: 1\nvysoká: 1\nstřední: 1\nnízká: 0\n", out)

	out, err = run(t, "list", "--pending")
	require.NoError(t, err)
	assert.Contains(t, out, "Read book")
	assert.NotContains(t, out, "Buy milk")

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "done ")

	backup := filepath.Join(dir, "backup")
	out, err = run(t, "export", backup)
	require.NoError(t, err)
	assert.Equal(t, "exported to "+backup+".json\n", out)
	data, err := os.ReadFile(backup + ".json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"export_date"`)

	_, err = run(t, "export", "--pdf", filepath.Join(dir, "report"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "report.pdf"))

	out, err = run(t, "delete", "2")
	require.NoError(t, err)
	assert.Equal(t, "deleted #2\n", out)

	out, err = run(t, "add", "Third")
	require.NoError(t, err)
	assert.Equal(t, "added #3 Third [střední]\n", out)
}

func TestCommandErrors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "complete", "7")
	assert.EqualError(t, err, "task 7 not found")

	_, err = run(t, "delete", "abc")
	assert.Error(t, err)

	_, err = run(t, "add", "-p", "urgent", "x")
	assert.Error(t, err)

	_, err = run(t, "add", "   ")
	assert.Error(t, err)

	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "no tasks\n", out)
}
