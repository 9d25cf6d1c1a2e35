package service

import (
	"context"
	"errors"
	"strings"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/repository"
)

var (
	// ErrTaskNotFound is returned for unknown or deleted tasks.
	ErrTaskNotFound = errors.New("task not found")
	// ErrForbidden is returned when the task belongs to another user.
	ErrForbidden = errors.New("task belongs to another user")
)

// TaskRepository defines the persistence operations needed by the TaskService.
type TaskRepository interface {
	ListTasks(ctx context.Context, userID string, filter models.StatusFilter) ([]models.Task, error)
	CreateTask(ctx context.Context, userID string, in models.TaskCreate) (*models.Task, error)
	// GetTask fetches a task by id for any owner.
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	UpdateTask(ctx context.Context, id int64, in models.TaskUpdate) (*models.Task, error)
	SetCompleted(ctx context.Context, id int64, completed bool) (*models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// TaskService implements task operations scoped to the calling user.
type TaskService struct {
	// repo is the underlying persistence repository.
	repo TaskRepository
}

// NewTaskService constructs a TaskService with the provided TaskRepository.
func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

// List returns the user's tasks matching filter.
func (s *TaskService) List(ctx context.Context, userID string, filter models.StatusFilter) ([]models.Task, error) {
	return s.repo.ListTasks(ctx, userID, filter)
}

// Create validates in and stores it for userID.
func (s *TaskService) Create(ctx context.Context, userID string, in models.TaskCreate) (*models.Task, error) {
	desc := ""
	if in.Description != nil {
		desc = *in.Description
	}
	clean, err := models.NewTaskCreate(in.Title, desc)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateTask(ctx, userID, clean)
}

// Get returns one of the user's tasks.
func (s *TaskService) Get(ctx context.Context, userID string, id int64) (*models.Task, error) {
	return s.owned(ctx, userID, id)
}

// Update changes the fields set in in.
func (s *TaskService) Update(ctx context.Context, userID string, id int64, in models.TaskUpdate) (*models.Task, error) {
	if in.Title != nil {
		in.Title = models.StringPtr(strings.TrimSpace(*in.Title))
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.mapNotFound(s.repo.UpdateTask(ctx, id, in))
}

// Toggle sets completion to *completed, or flips it when completed is nil.
func (s *TaskService) Toggle(ctx context.Context, userID string, id int64, completed *bool) (*models.Task, error) {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	next := !t.Completed
	if completed != nil {
		next = *completed
	}
	return s.mapNotFound(s.repo.SetCompleted(ctx, id, next))
}

// Delete removes one of the user's tasks.
func (s *TaskService) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	return nil
}

func (s *TaskService) owned(ctx context.Context, userID string, id int64) (*models.Task, error) {
	t, err := s.mapNotFound(s.repo.GetTask(ctx, id))
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *TaskService) mapNotFound(t *models.Task, err error) (*models.Task, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	return t, err
}
