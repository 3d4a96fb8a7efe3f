package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// TimeLayout formats task timestamps (created, completed_at).
	TimeLayout = "02.01.2006 15:04"
	// StampLayout formats document timestamps (last_save, export_date).
	StampLayout = "02.01.2006 15:04:05"
)

var (
	ErrEmptyName       = errors.New("task name must not be empty")
	ErrUnknownPriority = errors.New("unknown priority")
)

var validate = validator.New()

// ValidationError reports a rejected field of a task.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type Task struct {
	ID          int
	Name        string
	Created     time.Time
	Completed   bool
	CompletedAt time.Time // zero unless Completed
	Priority    Priority
	TimeSpent   float64
}

type newTaskInput struct {
	Name string `validate:"required"`
}

// NewTask builds a pending task. A zero priority means PriorityMedium.
// Timestamps are kept at minute precision, which is what the file format stores.
func NewTask(id int, name string, p Priority, now time.Time) (Task, error) {
	in := newTaskInput{Name: strings.TrimSpace(name)}
	if err := validate.Struct(in); err != nil {
		return Task{}, &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	if p == 0 {
		p = PriorityMedium
	}
	if !p.Valid() {
		return Task{}, &ValidationError{Field: "priority", Err: ErrUnknownPriority}
	}
	return Task{
		ID:       id,
		Name:     in.Name,
		Created:  Minute(now),
		Priority: p,
	}, nil
}

// MarkCompleted is not idempotent: a second call moves CompletedAt forward.
func (t *Task) MarkCompleted(now time.Time) {
	t.Completed = true
	t.CompletedAt = Minute(now)
}

// Minute drops everything below minute precision, monotonic reading included.
func Minute(t time.Time) time.Time {
	return t.Round(0).Truncate(time.Minute)
}

type Stats struct {
	Total      int
	Completed  int
	Pending    int
	ByPriority map[Priority]int
}

// NewStats returns empty stats with every priority present.
func NewStats() Stats {
	by := make(map[Priority]int, len(Priorities()))
	for _, p := range Priorities() {
		by[p] = 0
	}
	return Stats{ByPriority: by}
}

// Summarize computes stats over tasks in one pass.
func Summarize(tasks []Task) Stats {
	st := NewStats()
	for _, t := range tasks {
		st.Total++
		if t.Completed {
			st.Completed++
		}
		st.ByPriority[t.Priority]++
	}
	st.Pending = st.Total - st.Completed
	return st
}

// Percent is the completed share, 0 for an empty store.
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}
