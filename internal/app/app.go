package app

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/olgkv/tasktracker/internal/config"
	"github.com/olgkv/tasktracker/internal/service"
	"github.com/olgkv/tasktracker/internal/storage"
)

// New wires application dependencies: it makes sure the data file exists
// and returns a running task manager. reg may be nil.
func New(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*service.Manager, error) {
	repo := storage.NewJSONRepository(cfg.TasksFile)
	created, err := repo.Init()
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", cfg.TasksFile, err)
	}
	if created {
		logger.Info("created new tasks file", "file", cfg.TasksFile)
	}

	mgr := service.New(repo, service.Config{
		DataFile:      cfg.TasksFile,
		SaveQueueSize: cfg.SaveQueueSize,
		StatsInterval: cfg.StatsInterval,
	}, logger, service.NewMetrics(reg))
	return mgr, nil
}

// NewLogger builds a slog logger writing text or JSON lines to w.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
