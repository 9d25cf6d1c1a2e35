package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/GophTodo/internal/models"
)

const taskColumns = `id, user_id, title, description, completed, created_at, updated_at`

// PostgresTaskRepository implements task storage against a PostgreSQL
// database. Deleted tasks are only marked and are purged later by the
// cleaner.
type PostgresTaskRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresTaskRepository creates a new PostgresTaskRepository using the provided *sql.DB.
func NewPostgresTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{DB: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	var (
		t    models.Task
		desc sql.NullString
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.Title, &desc, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	return &t, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// ListTasks returns the user's live tasks, newest first.
//
//	ctx:    context for cancellation and deadlines
//	userID: owner of the tasks
//	filter: StatusPending or StatusCompleted narrow the result
func (r *PostgresTaskRepository) ListTasks(ctx context.Context, userID string, filter models.StatusFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 AND deleted_at IS NULL`
	args := []any{userID}
	switch filter {
	case models.StatusPending:
		query += ` AND completed = $2`
		args = append(args, false)
	case models.StatusCompleted:
		query += ` AND completed = $2`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTasks: %w", err)
	}
	return tasks, nil
}

// CreateTask inserts a task owned by userID.
func (r *PostgresTaskRepository) CreateTask(ctx context.Context, userID string, in models.TaskCreate) (*models.Task, error) {
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO tasks (user_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING `+taskColumns,
		userID, in.Title, nullable(in.Description))
	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("CreateTask: %w", err)
	}
	return t, nil
}

// GetTask returns a live task by id regardless of owner, so callers can
// tell a missing task from someone else's.
func (r *PostgresTaskRepository) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND deleted_at IS NULL`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetTask: %w", err)
	}
	return t, nil
}

// UpdateTask overwrites the fields of in that are set.
func (r *PostgresTaskRepository) UpdateTask(ctx context.Context, id int64, in models.TaskUpdate) (*models.Task, error) {
	row := r.DB.QueryRowContext(ctx, `
		UPDATE tasks
		   SET title = COALESCE($2, title),
		       description = COALESCE($3, description),
		       updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+taskColumns,
		id, nullable(in.Title), nullable(in.Description))
	return r.scanUpdated(row, "UpdateTask")
}

// SetCompleted stores the completion flag.
func (r *PostgresTaskRepository) SetCompleted(ctx context.Context, id int64, completed bool) (*models.Task, error) {
	row := r.DB.QueryRowContext(ctx, `
		UPDATE tasks
		   SET completed = $2, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+taskColumns,
		id, completed)
	return r.scanUpdated(row, "SetCompleted")
}

func (r *PostgresTaskRepository) scanUpdated(row scanner, op string) (*models.Task, error) {
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// DeleteTask marks a task deleted.
func (r *PostgresTaskRepository) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tasks SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("DeleteTask: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteTask: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
