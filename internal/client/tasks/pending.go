package tasks

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/models"
)

// PendingSource is the buffer of tasks drafted while signed out.
type PendingSource interface {
	List() []models.PendingTask
	RemoveByTimestamp(ts int64) error
	Clear() error
}

// ReplayResult summarizes a SubmitPending run.
type ReplayResult struct {
	Submitted []models.Task
	// Failed keeps the drafts still in the buffer.
	Failed []models.PendingTask
	// Err aggregates every failure, nil when all drafts were created.
	Err error
}

// SubmitPending creates every buffered draft. Each success is removed from
// the buffer right away; the buffer is cleared once all succeed.
func (s *Store) SubmitPending(ctx context.Context, buf PendingSource) ReplayResult {
	var res ReplayResult

	pending := buf.List()
	if len(pending) == 0 {
		return res
	}

	for _, p := range pending {
		t, err := s.Create(ctx, p.Title, p.Description)
		if err != nil {
			s.log.Warn("pending task not submitted",
				zap.Int64("timestamp", p.Timestamp),
				zap.Error(err),
			)
			res.Failed = append(res.Failed, p)
			res.Err = multierr.Append(res.Err, fmt.Errorf("pending task %q: %w", p.Title, err))
			continue
		}
		res.Submitted = append(res.Submitted, *t)
		if err := buf.RemoveByTimestamp(p.Timestamp); err != nil {
			res.Err = multierr.Append(res.Err, fmt.Errorf("remove pending task: %w", err))
		}
	}

	if len(res.Failed) == 0 {
		if err := buf.Clear(); err != nil {
			res.Err = multierr.Append(res.Err, fmt.Errorf("clear pending tasks: %w", err))
		}
	}

	s.log.Info("pending tasks replayed",
		zap.Int("submitted", len(res.Submitted)),
		zap.Int("failed", len(res.Failed)),
	)
	return res
}
