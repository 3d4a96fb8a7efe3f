package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/olgkv/tasktracker/internal/domain"
)

// Metrics groups the manager's prometheus collectors.
type Metrics struct {
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
	queueDepth   prometheus.Gauge
	coalesced    prometheus.Counter
	exports      *prometheus.CounterVec
	tasks        *prometheus.GaugeVec
	priorities   *prometheus.GaugeVec
}

// NewMetrics registers the collectors with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_saves_total",
			Help: "Writes of the primary data file by status",
		}, []string{"status"}),
		saveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tasktracker_save_duration_seconds",
			Help:    "Duration of primary data file writes",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "tasktracker_save_queue_depth",
			Help: "Save requests waiting to be written",
		}),
		coalesced: f.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_save_requests_coalesced_total",
			Help: "Pending save requests superseded by a newer snapshot while the queue was full",
		}),
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_exports_total",
			Help: "Finished exports by kind and status",
		}, []string{"kind", "status"}),
		tasks: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tasktracker_tasks",
			Help: "Tasks by state as of the last stats report",
		}, []string{"state"}),
		priorities: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tasktracker_tasks_by_priority",
			Help: "Tasks by priority as of the last stats report",
		}, []string{"priority"}),
	}
}

func (m *Metrics) observeSave(err error, d time.Duration) {
	m.saves.WithLabelValues(status(err)).Inc()
	m.saveDuration.Observe(d.Seconds())
}

func (m *Metrics) setStats(s domain.Stats) {
	m.tasks.WithLabelValues("completed").Set(float64(s.Completed))
	m.tasks.WithLabelValues("pending").Set(float64(s.Pending))
	for p, n := range s.ByPriority {
		m.priorities.WithLabelValues(p.Label()).Set(float64(n))
	}
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
