package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olgkv/tasktracker/internal/domain"
	pdfgen "github.com/olgkv/tasktracker/internal/pdf"
	"github.com/olgkv/tasktracker/internal/storage"
)

var ErrEmptyFilename = errors.New("export filename must not be empty")

const (
	ExportJSON = "json"
	ExportPDF  = "pdf"
)

// ExportHandle tracks one export started by ExportTo or ExportReport.
type ExportHandle struct {
	ID       uuid.UUID
	Filename string
	Kind     string

	done chan struct{}
	err  error
}

// Done is closed once the export has finished, successfully or not.
func (h *ExportHandle) Done() <-chan struct{} { return h.done }

// Err returns the export result, or nil while it is still running.
func (h *ExportHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the export finishes or ctx ends.
func (h *ExportHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExportTo writes the current tasks to filename in the background.
// ".json" is appended when missing. The returned handle reports completion.
func (m *Manager) ExportTo(filename string) (*ExportHandle, error) {
	return m.startExport(filename, ExportJSON, func(tasks []domain.Task, at time.Time) ([]byte, error) {
		return storage.Encode(tasks, 0, storage.LabelExportDate, at)
	})
}

// ExportReport is ExportTo for a PDF report; ".pdf" is appended when missing.
func (m *Manager) ExportReport(filename string) (*ExportHandle, error) {
	return m.startExport(filename, ExportPDF, pdfgen.BuildTasksReport)
}

// Exports lists every export started so far.
func (m *Manager) Exports() []*ExportHandle {
	m.exportMu.Lock()
	defer m.exportMu.Unlock()
	return append([]*ExportHandle(nil), m.exports...)
}

type renderFunc func(tasks []domain.Task, at time.Time) ([]byte, error)

func (m *Manager) startExport(filename, kind string, render renderFunc) (*ExportHandle, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, &domain.ValidationError{Field: "filename", Err: ErrEmptyFilename}
	}
	if !strings.EqualFold(filepath.Ext(filename), "."+kind) {
		filename += "." + kind
	}

	m.life.RLock()
	defer m.life.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	h := &ExportHandle{
		ID:       uuid.New(),
		Filename: filename,
		Kind:     kind,
		done:     make(chan struct{}),
	}
	tasks, at := m.store.Snapshot(), m.cfg.Now()

	m.exportMu.Lock()
	m.exports = append(m.exports, h)
	m.exportMu.Unlock()

	m.exportWG.Add(1)
	go m.exportWorker(h, tasks, at, render)
	return h, nil
}

func (m *Manager) exportWorker(h *ExportHandle, tasks []domain.Task, at time.Time, render renderFunc) {
	defer m.exportWG.Done()
	defer close(h.done)

	m.log.Info("export started", "export_id", h.ID.String(), "file", h.Filename, "tasks", len(tasks))
	data, err := render(tasks, at)
	if err == nil {
		err = m.cfg.WriteExport(h.Filename, data)
	}
	h.err = err
	m.metrics.exports.WithLabelValues(h.Kind, status(err)).Inc()

	if err != nil {
		m.log.Error("export failed", "export_id", h.ID.String(), "file", h.Filename, "error", err)
		return
	}
	m.log.Info("export finished", "export_id", h.ID.String(), "file", h.Filename)
}
