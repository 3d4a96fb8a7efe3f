package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("TASKS_FILE", "/tmp/my-tasks.json")
	t.Setenv("STATS_INTERVAL", "10s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/my-tasks.json", cfg.TasksFile)
	assert.Equal(t, 10*time.Second, cfg.StatsInterval)
	assert.Equal(t, 64, cfg.SaveQueueSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tasks.json", cfg.TasksFile)
	assert.Equal(t, 30*time.Second, cfg.StatsInterval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tasks_file: from-file.json\nsave_queue_size: 8\nlog_format: json\n"), 0o644))
	t.Setenv("SAVE_QUEUE_SIZE", "16")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file.json", cfg.TasksFile)
	assert.Equal(t, 16, cfg.SaveQueueSize, "environment wins over the file")
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string][2]string{
		"zero queue":   {"SAVE_QUEUE_SIZE", "0"},
		"bad level":    {"LOG_LEVEL", "loud"},
		"bad duration": {"STATS_INTERVAL", "soon"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
