package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olgkv/tasktracker/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		TasksFile:       filepath.Join(t.TempDir(), "tasks.json"),
		SaveQueueSize:   8,
		StatsInterval:   time.Minute,
		ShutdownTimeout: time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

func TestNewCreatesDataFile(t *testing.T) {
	cfg := testConfig(t)
	var logs bytes.Buffer
	mgr, err := New(cfg, NewLogger("info", "text", &logs), prometheus.NewRegistry())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.TasksFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tasks": []}`, string(data))
	assert.Contains(t, logs.String(), "created new tasks file")

	_, err = mgr.AddTask("wired", 0)
	require.NoError(t, err)
	require.NoError(t, mgr.Shutdown(context.Background()))

	data, err = os.ReadFile(cfg.TasksFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"wired"`)
	assert.Contains(t, string(data), `"last_save"`)
}

func TestNewFailsOnUnusablePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.TasksFile = filepath.Join(t.TempDir(), "missing", "tasks.json")

	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "tasks", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, float64(3), line["tasks"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("whatever"))
}
