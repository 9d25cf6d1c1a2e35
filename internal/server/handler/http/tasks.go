package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/middleware"
	"github.com/atinyakov/GophTodo/internal/models"
)

// TaskService defines the task operations required by the TaskHandler.
// Every call is scoped to the authenticated user.
type TaskService interface {
	List(ctx context.Context, userID string, filter models.StatusFilter) ([]models.Task, error)
	Create(ctx context.Context, userID string, in models.TaskCreate) (*models.Task, error)
	Get(ctx context.Context, userID string, id int64) (*models.Task, error)
	Update(ctx context.Context, userID string, id int64, in models.TaskUpdate) (*models.Task, error)
	Toggle(ctx context.Context, userID string, id int64, completed *bool) (*models.Task, error)
	Delete(ctx context.Context, userID string, id int64) error
}

// TaskHandler handles the /tasks endpoints.
type TaskHandler struct {
	TaskService TaskService
	Logger      *zap.Logger
}

// List handles GET /tasks?status=all|pending|completed.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := models.ParseStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "status must be all, pending or completed")
		return
	}

	tasks, err := h.TaskService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.TaskCreate
	if err := decode(r, &in, false); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}

	task, err := h.TaskService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := h.TaskService.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update handles PUT /tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var in models.TaskUpdate
	if err := decode(r, &in, false); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}

	task, err := h.TaskService.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), id, in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Toggle handles PATCH /tasks/{id}/complete. The body is optional.
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var in models.ToggleRequest
	if err := decode(r, &in, true); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}

	task, err := h.TaskService.Toggle(r.Context(), middleware.GetUserIDFromContext(r.Context()), id, in.Completed)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /tasks/{id} and answers 204.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := h.TaskService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), id); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid task id")
		return 0, false
	}
	return id, true
}
