package service

import (
	"context"
	"sync"
	"time"

	"github.com/olgkv/tasktracker/internal/domain"
	"github.com/olgkv/tasktracker/internal/storage"
)

// SaveRequest is a point-in-time copy of the task list waiting to be written.
type SaveRequest struct {
	Seq    uint64
	Tasks  []domain.Task
	NextID int
	At     time.Time
}

// saveQueue hands snapshots from mutators to the auto-save worker.
// Enqueue never blocks: when the buffer is full the oldest pending
// request is dropped, since the new snapshot already contains its state.
type saveQueue struct {
	mu      sync.Mutex // orders snapshot capture with channel order
	seq     uint64
	ch      chan SaveRequest
	pending sync.WaitGroup
}

func newSaveQueue(capacity int) *saveQueue {
	return &saveQueue{ch: make(chan SaveRequest, capacity)}
}

// enqueue captures a snapshot with take and queues it. It reports whether
// an older request was superseded.
func (q *saveQueue) enqueue(take func() SaveRequest) (dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	req := take()
	req.Seq = q.seq

	q.pending.Add(1)
	select {
	case q.ch <- req:
		return false
	default:
	}

	select {
	case <-q.ch:
		q.pending.Done()
		dropped = true
	default:
		// the worker took one in the meantime
	}
	// Only enqueue sends, under q.mu, so a slot is free now.
	q.ch <- req
	return dropped
}

// latest returns a request numbered after everything enqueued so far.
func (q *saveQueue) latest(take func() SaveRequest) SaveRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	req := take()
	req.Seq = q.seq
	return req
}

// done marks a dequeued request as written (or failed).
func (q *saveQueue) done() { q.pending.Done() }

func (q *saveQueue) depth() int { return len(q.ch) }

// drain blocks until every queued request has been handled or ctx ends.
func (q *saveQueue) drain(ctx context.Context) error {
	return waitCtx(ctx, q.pending.Wait)
}

// autoSaveWorker writes queued snapshots in order. After ctx is cancelled
// it empties the queue and exits.
func (m *Manager) autoSaveWorker(ctx context.Context) {
	defer m.workers.Done()
	m.log.Debug("auto-save worker started")

	for {
		select {
		case req := <-m.queue.ch:
			m.persist(req)
		case <-ctx.Done():
			for {
				select {
				case req := <-m.queue.ch:
					m.persist(req)
				default:
					m.log.Debug("auto-save worker stopped")
					return
				}
			}
		}
	}
}

func (m *Manager) persist(req SaveRequest) {
	defer m.queue.done()

	start := time.Now()
	wrote, err := m.write(req)
	if !wrote && err == nil {
		m.log.Debug("skipped stale save", "seq", req.Seq)
		return
	}
	m.metrics.observeSave(err, time.Since(start))
	m.metrics.queueDepth.Set(float64(m.queue.depth()))

	if err != nil {
		m.saveErrLog.Do(func() {
			m.log.Error("auto-save failed", "seq", req.Seq, "file", m.cfg.DataFile, "error", err)
		})
		return
	}
	m.log.Debug("auto-saved",
		"seq", req.Seq,
		"saved_at", req.At.Format(domain.StampLayout),
		"tasks", len(req.Tasks),
	)
}

// write stores req unless a newer request has already been written.
// Writes are serialised so the file never goes back to an older snapshot.
func (m *Manager) write(req SaveRequest) (bool, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if req.Seq <= m.writtenSeq {
		return false, nil
	}

	data, err := storage.Encode(req.Tasks, req.NextID, storage.LabelLastSave, req.At)
	if err != nil {
		return false, err
	}
	if err := m.repo.Write(data); err != nil {
		return false, err
	}
	m.writtenSeq = req.Seq
	return true, nil
}

func waitCtx(ctx context.Context, wait func()) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
