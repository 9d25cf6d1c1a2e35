// Package tasks keeps the shell's copy of the user's task list in step with
// the server. Every change is applied only after the server confirms it.
package tasks

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/models"
)

// API is the subset of the API client used by Store.
type API interface {
	ListTasks(ctx context.Context, filter models.StatusFilter) ([]models.Task, error)
	CreateTask(ctx context.Context, in models.TaskCreate) (*models.Task, error)
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	UpdateTask(ctx context.Context, id int64, in models.TaskUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ToggleCompletion(ctx context.Context, id int64, completed *bool) (*models.Task, error)
}

// Store is the ordered task list for the selected filter, newest first.
type Store struct {
	api API
	log *zap.Logger

	mu     sync.Mutex
	filter models.StatusFilter
	tasks  []models.Task
}

// NewStore returns an empty Store showing all tasks.
func NewStore(api API, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{api: api, log: log, filter: models.StatusAll}
}

// Tasks returns a copy of the cached list.
func (s *Store) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Filter returns the active status filter.
func (s *Store) Filter() models.StatusFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Reset drops the cached list, e.g. on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
}

// Refresh replaces the cache with the server's list for the active filter.
// On error the cache is left as it was.
func (s *Store) Refresh(ctx context.Context) error {
	return s.SetFilter(ctx, s.Filter())
}

// SetFilter switches the filter and reloads the list.
func (s *Store) SetFilter(ctx context.Context, f models.StatusFilter) error {
	list, err := s.api.ListTasks(ctx, f)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	s.tasks = list
	return nil
}

// Create validates the input, creates the task and puts it at the head of
// the list when it matches the filter.
func (s *Store) Create(ctx context.Context, title, description string) (*models.Task, error) {
	in, err := models.NewTaskCreate(title, description)
	if err != nil {
		return nil, err
	}
	t, err := s.api.CreateTask(ctx, in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter.Matches(*t) && s.indexLocked(t.ID) < 0 {
		s.tasks = append([]models.Task{*t}, s.tasks...)
	}
	return t, nil
}

// Get fetches a task and refreshes its cached copy.
func (s *Store) Get(ctx context.Context, id int64) (*models.Task, error) {
	t, err := s.api.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	s.replace(*t)
	return t, nil
}

// Update applies the set fields of in.
func (s *Store) Update(ctx context.Context, id int64, in models.TaskUpdate) (*models.Task, error) {
	t, err := s.api.UpdateTask(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.replace(*t)
	return t, nil
}

// Toggle sets completion when completed is non-nil and flips it otherwise.
func (s *Store) Toggle(ctx context.Context, id int64, completed *bool) (*models.Task, error) {
	t, err := s.api.ToggleCompletion(ctx, id, completed)
	if err != nil {
		return nil, err
	}
	s.replace(*t)
	return t, nil
}

// Delete removes the task on the server, then from the cache.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteTask(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	}
	return nil
}

// replace swaps in t by id. A task that no longer matches the filter is
// dropped; a task not in the cache is not added.
func (s *Store) replace(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(t.ID)
	if i < 0 {
		return
	}
	if !s.filter.Matches(t) {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		return
	}
	s.tasks[i] = t
}

func (s *Store) indexLocked(id int64) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
