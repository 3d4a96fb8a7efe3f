package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olgkv/tasktracker/internal/domain"
)

// Labels of the "when written" field of a document.
const (
	LabelLastSave   = "last_save"
	LabelExportDate = "export_date"
)

var ErrMalformed = errors.New("malformed task document")

// RecordError describes a single task record rejected by Decode.
type RecordError struct {
	Index int
	ID    int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("task record %d (id %d): %v", e.Index, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

type taskRecord struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Created     string  `json:"created"`
	Completed   bool    `json:"completed"`
	CompletedAt *string `json:"completed_at"`
	Priority    string  `json:"priority"`
	TimeSpent   float64 `json:"time_spent"`
}

type document struct {
	Tasks      []taskRecord `json:"tasks"`
	NextID     int          `json:"next_id,omitempty"`
	LastSave   string       `json:"last_save,omitempty"`
	ExportDate string       `json:"export_date,omitempty"`
}

type rawDocument struct {
	Tasks      *[]json.RawMessage `json:"tasks"`
	NextID     int                `json:"next_id"`
	LastSave   *string            `json:"last_save"`
	ExportDate *string            `json:"export_date"`
}

// Decoded is the result of Decode.
type Decoded struct {
	Tasks []domain.Task
	// MaxID is the highest id already handed out: the largest record id
	// seen (rejected records included) or next_id-1, whichever is larger.
	MaxID int
	// Written is the last_save or export_date stamp, zero when absent.
	Written time.Time
}

// Encode renders tasks as an indented JSON document stamped with at under label.
// A positive nextID is stored as next_id so deleted ids stay retired.
func Encode(tasks []domain.Task, nextID int, label string, at time.Time) ([]byte, error) {
	doc := document{Tasks: make([]taskRecord, 0, len(tasks))}
	if nextID > 0 {
		doc.NextID = nextID
	}
	stamp := at.Format(domain.StampLayout)
	switch label {
	case LabelLastSave:
		doc.LastSave = stamp
	case LabelExportDate:
		doc.ExportDate = stamp
	default:
		return nil, fmt.Errorf("unknown timestamp label %q", label)
	}

	for _, t := range tasks {
		if !t.Priority.Valid() {
			return nil, fmt.Errorf("task %d: %w", t.ID, domain.ErrUnknownPriority)
		}
		rec := taskRecord{
			ID:        t.ID,
			Name:      t.Name,
			Created:   t.Created.Format(domain.TimeLayout),
			Completed: t.Completed,
			Priority:  t.Priority.String(),
			TimeSpent: t.TimeSpent,
		}
		if !t.CompletedAt.IsZero() {
			s := t.CompletedAt.Format(domain.TimeLayout)
			rec.CompletedAt = &s
		}
		doc.Tasks = append(doc.Tasks, rec)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a document. A document that is not JSON or has no tasks
// array fails with ErrMalformed. Invalid records are skipped and reported
// as joined *RecordError values next to the valid tasks.
func Decode(data []byte) (Decoded, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Tasks == nil {
		return Decoded{}, fmt.Errorf("%w: missing tasks array", ErrMalformed)
	}

	var res Decoded
	if raw.NextID > 1 {
		res.MaxID = raw.NextID - 1
	}
	switch {
	case raw.LastSave != nil:
		res.Written, _ = time.ParseInLocation(domain.StampLayout, *raw.LastSave, time.Local)
	case raw.ExportDate != nil:
		res.Written, _ = time.ParseInLocation(domain.StampLayout, *raw.ExportDate, time.Local)
	}

	var errs []error
	seen := make(map[int]bool, len(*raw.Tasks))
	res.Tasks = make([]domain.Task, 0, len(*raw.Tasks))
	for i, msg := range *raw.Tasks {
		var rec taskRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			errs = append(errs, &RecordError{Index: i, Err: err})
			continue
		}
		if rec.ID > res.MaxID {
			res.MaxID = rec.ID
		}
		if seen[rec.ID] {
			errs = append(errs, &RecordError{Index: i, ID: rec.ID, Err: errors.New("duplicate id")})
			continue
		}
		t, err := rec.task()
		if err != nil {
			errs = append(errs, &RecordError{Index: i, ID: rec.ID, Err: err})
			continue
		}
		seen[t.ID] = true
		res.Tasks = append(res.Tasks, t)
	}
	return res, errors.Join(errs...)
}

func (r taskRecord) task() (domain.Task, error) {
	if r.ID <= 0 {
		return domain.Task{}, errors.New("id must be positive")
	}
	if strings.TrimSpace(r.Name) == "" {
		return domain.Task{}, domain.ErrEmptyName
	}
	p, err := domain.ParseWirePriority(r.Priority)
	if err != nil {
		return domain.Task{}, err
	}
	created, err := time.ParseInLocation(domain.TimeLayout, r.Created, time.Local)
	if err != nil {
		return domain.Task{}, fmt.Errorf("created: %w", err)
	}

	t := domain.Task{
		ID:        r.ID,
		Name:      r.Name,
		Created:   created,
		Completed: r.Completed,
		Priority:  p,
		TimeSpent: r.TimeSpent,
	}
	if r.CompletedAt != nil {
		t.CompletedAt, err = time.ParseInLocation(domain.TimeLayout, *r.CompletedAt, time.Local)
		if err != nil {
			return domain.Task{}, fmt.Errorf("completed_at: %w", err)
		}
	}
	if t.Completed == t.CompletedAt.IsZero() {
		return domain.Task{}, errors.New("completed_at must be set exactly when completed")
	}
	return t, nil
}
