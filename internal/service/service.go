package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olgkv/tasktracker/internal/domain"
	"github.com/olgkv/tasktracker/internal/ports"
	"github.com/olgkv/tasktracker/internal/storage"
)

// ErrClosed is returned by calls made after Shutdown.
var ErrClosed = errors.New("task manager is shut down")

const (
	defaultSaveQueueSize = 64
	defaultStatsInterval = 30 * time.Second
)

// Config holds the manager settings.
type Config struct {
	// DataFile is the primary document path, used in log lines.
	DataFile      string
	SaveQueueSize int
	StatsInterval time.Duration

	// Now and WriteExport are replaceable for tests.
	Now         func() time.Time
	WriteExport func(path string, data []byte) error
}

// Manager coordinates the task store, the save queue and the background
// workers. Mutations never wait for file I/O; Shutdown persists the final state.
type Manager struct {
	cfg     Config
	repo    ports.SnapshotRepository
	store   *storage.TaskStore
	queue   *saveQueue
	log     *slog.Logger
	metrics *Metrics

	saveErrLog rate.Sometimes

	// writeMu orders file writes; writtenSeq is the last Seq on disk.
	writeMu    sync.Mutex
	writtenSeq uint64

	// life guards closed; mutators hold it shared across mutate+enqueue.
	life   sync.RWMutex
	closed bool

	cancel  context.CancelFunc
	workers sync.WaitGroup

	exportMu sync.Mutex
	exports  []*ExportHandle
	exportWG sync.WaitGroup
}

// New loads the stored tasks and starts the auto-save and stats workers.
// A missing or unreadable document starts an empty store.
func New(repo ports.SnapshotRepository, cfg Config, logger *slog.Logger, metrics *Metrics) *Manager {
	if cfg.SaveQueueSize <= 0 {
		cfg.SaveQueueSize = defaultSaveQueueSize
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = defaultStatsInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.WriteExport == nil {
		cfg.WriteExport = storage.WriteFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	m := &Manager{
		cfg:        cfg,
		repo:       repo,
		store:      storage.NewTaskStore(cfg.Now),
		queue:      newSaveQueue(cfg.SaveQueueSize),
		log:        logger,
		metrics:    metrics,
		saveErrLog: rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
	m.load()
	m.metrics.setStats(m.store.Aggregate())

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.workers.Add(2)
	go m.autoSaveWorker(ctx)
	go m.statsWorker(ctx)

	m.log.Info("task manager started",
		"file", cfg.DataFile,
		"tasks_loaded", m.store.Len(),
		"next_id", m.store.NextID(),
	)
	return m
}

func (m *Manager) load() {
	data, err := m.repo.Read()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.log.Warn("cannot read tasks, starting empty", "file", m.cfg.DataFile, "error", err)
		}
		return
	}

	dec, err := storage.Decode(data)
	if errors.Is(err, storage.ErrMalformed) {
		m.log.Warn("tasks file is malformed, starting empty", "file", m.cfg.DataFile, "error", err)
		return
	}
	if err != nil {
		m.log.Warn("skipped invalid task records", "file", m.cfg.DataFile, "error", err)
	}
	m.store.Load(dec.Tasks, dec.MaxID)
}

// AddTask creates a task; a zero priority means medium.
// Blank names fail with a *domain.ValidationError.
func (m *Manager) AddTask(name string, p domain.Priority) (domain.Task, error) {
	m.life.RLock()
	defer m.life.RUnlock()
	if m.closed {
		return domain.Task{}, ErrClosed
	}

	t, err := m.store.Add(name, p)
	if err != nil {
		return domain.Task{}, err
	}
	m.requestSave()
	return t, nil
}

// CompleteTask reports false for an unknown id or after Shutdown.
func (m *Manager) CompleteTask(id int) bool {
	m.life.RLock()
	defer m.life.RUnlock()
	if m.closed || !m.store.Complete(id) {
		return false
	}
	m.requestSave()
	return true
}

// DeleteTask reports false for an unknown id or after Shutdown.
func (m *Manager) DeleteTask(id int) bool {
	m.life.RLock()
	defer m.life.RUnlock()
	if m.closed || !m.store.Delete(id) {
		return false
	}
	m.requestSave()
	return true
}

func (m *Manager) GetTask(id int) (domain.Task, bool) {
	return m.store.Find(id)
}

func (m *Manager) ListTasks() []domain.Task {
	return m.store.Snapshot()
}

func (m *Manager) ListPending() []domain.Task {
	return m.store.Pending()
}

func (m *Manager) Stats() domain.Stats {
	return m.store.Aggregate()
}

func (m *Manager) saveState() SaveRequest {
	tasks, next := m.store.State()
	return SaveRequest{Tasks: tasks, NextID: next, At: m.cfg.Now()}
}

func (m *Manager) requestSave() {
	dropped := m.queue.enqueue(m.saveState)
	if dropped {
		m.metrics.coalesced.Inc()
	}
	m.metrics.queueDepth.Set(float64(m.queue.depth()))
}

// Shutdown stops the workers, waits for the save queue to drain, writes
// the current state once more and waits for running exports.
// Waiting honours ctx; the final save is attempted regardless.
// Calls after the first return nil.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.life.Lock()
	if m.closed {
		m.life.Unlock()
		return nil
	}
	m.closed = true
	m.life.Unlock()

	m.log.Info("stopping workers")
	m.cancel()

	var errs []error
	if err := m.queue.drain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain save queue: %w", err))
	}
	if err := waitCtx(ctx, m.workers.Wait); err != nil {
		errs = append(errs, fmt.Errorf("stop workers: %w", err))
	}

	// Numbered after every queued request: a worker still running after a
	// timed-out drain skips anything older.
	req := m.queue.latest(m.saveState)
	start := time.Now()
	_, err := m.write(req)
	m.metrics.observeSave(err, time.Since(start))
	if err != nil {
		m.log.Error("final save failed", "file", m.cfg.DataFile, "error", err)
		errs = append(errs, fmt.Errorf("final save: %w", err))
	} else {
		m.log.Info("final save done", "file", m.cfg.DataFile, "tasks", len(req.Tasks))
	}

	if err := waitCtx(ctx, m.exportWG.Wait); err != nil {
		errs = append(errs, fmt.Errorf("wait exports: %w", err))
	}
	m.metrics.setStats(domain.Summarize(req.Tasks))
	return errors.Join(errs...)
}
