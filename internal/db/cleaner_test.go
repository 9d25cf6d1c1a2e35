package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPurgeDeletedTasks(t *testing.T) {
	cutoff := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name    string
		result  func(*sqlmock.ExpectedExec)
		wantMsg string
		wantLvl zapcore.Level
	}{
		{
			name:    "rows removed",
			result:  func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 2)) },
			wantMsg: "cleaned soft-deleted tasks",
			wantLvl: zapcore.InfoLevel,
		},
		{
			name:    "query fails",
			result:  func(e *sqlmock.ExpectedExec) { e.WillReturnError(errors.New("db fail")) },
			wantMsg: "failed to clean soft-deleted tasks",
			wantLvl: zapcore.ErrorLevel,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dbMock, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer dbMock.Close()

			tc.result(mock.ExpectExec("DELETE FROM tasks WHERE deleted_at IS NOT NULL").WithArgs(cutoff))

			core, logs := observer.New(zapcore.DebugLevel)
			purgeDeletedTasks(context.Background(), dbMock, cutoff, zap.New(core))

			entries := logs.FilterMessage(tc.wantMsg).All()
			require.Len(t, entries, 1)
			assert.Equal(t, tc.wantLvl, entries[0].Level)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStartSoftDeleteCleaner_RunsUntilCancelled(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer dbMock.Close()

	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartSoftDeleteCleaner(ctx, dbMock, 10*time.Millisecond, time.Hour, zap.New(core))

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("cleaned soft-deleted tasks").Len() > 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartSoftDeleteCleaner_CancelBeforeFirstTick(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer dbMock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	StartSoftDeleteCleaner(ctx, dbMock, 100*time.Millisecond, time.Hour, zap.NewNop())
	cancel()

	time.Sleep(150 * time.Millisecond)
	assert.NoError(t, mock.ExpectationsWereMet(), "no query after cancel")
}
