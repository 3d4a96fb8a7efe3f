package service

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olgkv/tasktracker/internal/domain"
	"github.com/olgkv/tasktracker/internal/storage"
)

func waitExport(t *testing.T, h *ExportHandle) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := h.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

func TestExportTo(t *testing.T) {
	m := newTestManager(t, &memRepo{}, Config{})
	_, err := m.AddTask("Buy milk", domain.PriorityHigh)
	require.NoError(t, err)
	_, err = m.AddTask("Read book", 0)
	require.NoError(t, err)
	m.CompleteTask(1)
	want := m.ListTasks()

	base := filepath.Join(t.TempDir(), "backup")
	h, err := m.ExportTo(base)
	require.NoError(t, err)
	assert.Equal(t, base+".json", h.Filename)
	assert.Equal(t, ExportJSON, h.Kind)
	require.NoError(t, waitExport(t, h))
	assert.NoError(t, h.Err())

	data, err := os.ReadFile(base + ".json")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "export_date")
	assert.NotContains(t, doc, "last_save")

	dec, err := storage.Decode(data)
	require.NoError(t, err)
	requireSameTasks(t, want, dec.Tasks)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.exports.WithLabelValues(ExportJSON, "success")))
	require.Len(t, m.Exports(), 1)
	assert.Equal(t, h.ID, m.Exports()[0].ID)
}

func TestExportToKeepsJSONSuffix(t *testing.T) {
	m := newTestManager(t, &memRepo{}, Config{})
	path := filepath.Join(t.TempDir(), "out.json")

	h, err := m.ExportTo(path)
	require.NoError(t, err)
	assert.Equal(t, path, h.Filename)
	require.NoError(t, waitExport(t, h))
}

func TestExportToSnapshotIsTakenAtCall(t *testing.T) {
	release := make(chan struct{})
	var written []byte
	m := newTestManager(t, &memRepo{}, Config{
		WriteExport: func(path string, data []byte) error {
			<-release
			written = data
			return nil
		},
	})
	_, err := m.AddTask("before", 0)
	require.NoError(t, err)

	h, err := m.ExportTo("snap")
	require.NoError(t, err)
	_, err = m.AddTask("after", 0)
	require.NoError(t, err)
	close(release)
	require.NoError(t, waitExport(t, h))

	dec, err := storage.Decode(written)
	require.NoError(t, err)
	require.Len(t, dec.Tasks, 1)
	assert.Equal(t, "before", dec.Tasks[0].Name)
}

func TestExportFailureIsReported(t *testing.T) {
	m := newTestManager(t, &memRepo{}, Config{})
	h, err := m.ExportTo(filepath.Join(t.TempDir(), "missing", "dir", "out"))
	require.NoError(t, err)

	assert.Error(t, waitExport(t, h))
	assert.Error(t, h.Err())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.exports.WithLabelValues(ExportJSON, "failure")))
}

func TestExportRejectsEmptyFilename(t *testing.T) {
	m := newTestManager(t, &memRepo{}, Config{})
	_, err := m.ExportTo("  ")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrEmptyFilename)
	assert.Empty(t, m.Exports())
}

func TestExportReport(t *testing.T) {
	m := newTestManager(t, &memRepo{}, Config{})
	_, err := m.AddTask("Přečíst knihu", domain.PriorityLow)
	require.NoError(t, err)

	base := filepath.Join(t.TempDir(), "report")
	h, err := m.ExportReport(base)
	require.NoError(t, err)
	assert.Equal(t, base+".pdf", h.Filename)
	require.NoError(t, waitExport(t, h))

	data, err := os.ReadFile(base + ".pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestShutdownWaitsForExports(t *testing.T) {
	release := make(chan struct{})
	m := New(&memRepo{}, Config{
		WriteExport: func(path string, data []byte) error {
			<-release
			return nil
		},
	}, discardLogger(), nil)

	h, err := m.ExportTo("slow")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Shutdown(context.Background()) }()

	select {
	case <-done:
		t.Fatal("shutdown returned while an export was running")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Nil(t, h.Err())

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not return")
	}
	select {
	case <-h.Done():
	default:
		t.Fatal("export not finished after shutdown")
	}
}
