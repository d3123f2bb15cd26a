package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/keystone-pm/keystone/internal/leasing"
)

func newTestLock(t *testing.T) *RunLock {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRunLock(client, time.Minute)
}

func TestRunLockIsExclusivePerPeriod(t *testing.T) {
	lock := newTestLock(t)
	ctx := context.Background()

	acquired, release, err := lock.Acquire(ctx, TaskRevenueRecognition, "2025-06")
	require.NoError(t, err)
	require.True(t, acquired)

	again, _, err := lock.Acquire(ctx, TaskRevenueRecognition, "2025-06")
	require.NoError(t, err)
	require.False(t, again)

	// A different period does not contend.
	other, otherRelease, err := lock.Acquire(ctx, TaskRevenueRecognition, "2025-07")
	require.NoError(t, err)
	require.True(t, other)
	otherRelease()

	release()
	reacquired, release2, err := lock.Acquire(ctx, TaskRevenueRecognition, "2025-06")
	require.NoError(t, err)
	require.True(t, reacquired)
	release2()
}

func TestRunLockSeparatesTasks(t *testing.T) {
	lock := newTestLock(t)
	ctx := context.Background()

	acquired, release, err := lock.Acquire(ctx, TaskRevenueRecognition, "2025-06")
	require.NoError(t, err)
	require.True(t, acquired)
	defer release()

	other, otherRelease, err := lock.Acquire(ctx, TaskMaintenanceAmortization, "2025-06")
	require.NoError(t, err)
	require.True(t, other)
	otherRelease()
}

type countingRecognition struct {
	runs int
	last time.Time
}

func (c *countingRecognition) RunMonthlyRecognition(ctx context.Context, runDate time.Time) (leasing.RecognitionResult, error) {
	c.runs++
	c.last = runDate
	return leasing.RecognitionResult{Period: runDate.Format("2006-01")}, nil
}

func TestRecognitionJobSkipsWhenLockHeld(t *testing.T) {
	lock := newTestLock(t)
	service := &countingRecognition{}
	job := NewRevenueRecognitionJob(service, lock, slog.Default())

	task, err := NewRevenueRecognitionTask(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	ctx := context.Background()
	acquired, release, err := lock.Acquire(ctx, TaskRevenueRecognition, "2025-06")
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, job.Handle(ctx, task))
	require.Equal(t, 0, service.runs)

	release()
	require.NoError(t, job.Handle(ctx, task))
	require.Equal(t, 1, service.runs)
	require.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), service.last)
}

func TestRecognitionJobRejectsMalformedPayload(t *testing.T) {
	job := NewRevenueRecognitionJob(&countingRecognition{}, nil, slog.Default())
	task := asynq.NewTask(TaskRevenueRecognition, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMonthlyRunPayloadDefaultsToNow(t *testing.T) {
	body, err := json.Marshal(MonthlyRunPayload{})
	require.NoError(t, err)
	var payload MonthlyRunPayload
	require.NoError(t, json.Unmarshal(body, &payload))

	fixed := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	got, err := payload.date(func() time.Time { return fixed })
	require.NoError(t, err)
	require.Equal(t, fixed, got)
}
