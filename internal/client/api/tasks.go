package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atinyakov/GophTodo/internal/models"
)

const apiTasks = "/tasks"

func taskPath(id int64) string {
	return apiTasks + "/" + strconv.FormatInt(id, 10)
}

// ListTasks returns the caller's tasks. An empty filter omits the status
// parameter and the server returns everything.
func (c *Client) ListTasks(ctx context.Context, filter models.StatusFilter) ([]models.Task, error) {
	var query url.Values
	if filter != "" {
		query = url.Values{"status": {string(filter)}}
	}

	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, apiTasks, query, nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// CreateTask validates in and creates a task. Invalid input never reaches
// the network.
func (c *Client) CreateTask(ctx context.Context, in models.TaskCreate) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var t models.Task
	if err := c.do(ctx, http.MethodPost, apiTasks, nil, in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies the non-nil fields of in.
func (c *Client) UpdateTask(ctx context.Context, id int64, in models.TaskUpdate) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var t models.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), nil, in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

// ToggleCompletion sets the completion flag when completed is non-nil and
// flips it otherwise.
func (c *Client) ToggleCompletion(ctx context.Context, id int64, completed *bool) (*models.Task, error) {
	var t models.Task
	body := models.ToggleRequest{Completed: completed}
	if err := c.do(ctx, http.MethodPatch, taskPath(id)+"/complete", nil, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
