package service

import (
	"context"
	"math"
	"time"

	"github.com/olgkv/tasktracker/internal/domain"
)

// statsWorker reports aggregate counts every StatsInterval until ctx ends.
func (m *Manager) statsWorker(ctx context.Context) {
	defer m.workers.Done()
	m.log.Debug("stats worker started", "interval", m.cfg.StatsInterval.String())

	ticker := time.NewTicker(m.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reportStats(m.store.Aggregate())
		}
	}
}

func (m *Manager) reportStats(s domain.Stats) {
	m.metrics.setStats(s)
	if s.Total == 0 {
		return
	}
	m.log.Info("stats",
		"completed", s.Completed,
		"total", s.Total,
		"percent", math.Round(s.Percent()),
	)
}
