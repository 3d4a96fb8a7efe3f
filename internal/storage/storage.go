package storage

import (
	"sync"
	"time"

	"github.com/olgkv/tasktracker/internal/domain"
)

// TaskStore is the in-memory, insertion-ordered task collection.
// Every method is safe for concurrent use; values returned are copies.
type TaskStore struct {
	mu     sync.RWMutex
	tasks  []domain.Task
	nextID int
	now    func() time.Time
}

// NewTaskStore returns an empty store. A nil clock means time.Now.
func NewTaskStore(now func() time.Time) *TaskStore {
	if now == nil {
		now = time.Now
	}
	return &TaskStore{
		nextID: 1,
		now:    now,
	}
}

// Load replaces the content of the store. The next id is one above the
// larger of maxID and the highest loaded id, so ids are never reused.
func (s *TaskStore) Load(tasks []domain.Task, maxID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append(make([]domain.Task, 0, len(tasks)), tasks...)
	for _, t := range s.tasks {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	s.nextID = maxID + 1
}

func (s *TaskStore) Add(name string, p domain.Priority) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := domain.NewTask(s.nextID, name, p, s.now())
	if err != nil {
		return domain.Task{}, err
	}
	s.nextID++
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *TaskStore) Find(id int) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], true
	}
	return domain.Task{}, false
}

// Complete marks the task done. It reports false for an unknown id.
func (s *TaskStore) Complete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.tasks[i].MarkCompleted(s.now())
	return true
}

func (s *TaskStore) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return true
}

// Snapshot returns a copy of all tasks in insertion order.
func (s *TaskStore) Snapshot() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append(make([]domain.Task, 0, len(s.tasks)), s.tasks...)
}

// State returns a copy of all tasks together with the next id, taken
// under one lock so both describe the same moment.
func (s *TaskStore) State() ([]domain.Task, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append(make([]domain.Task, 0, len(s.tasks)), s.tasks...), s.nextID
}

func (s *TaskStore) Pending() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.Completed {
			res = append(res, t)
		}
	}
	return res
}

// Aggregate computes every statistic in a single locked pass.
func (s *TaskStore) Aggregate() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Summarize(s.tasks)
}

func (s *TaskStore) NextID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *TaskStore) indexLocked(id int) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
