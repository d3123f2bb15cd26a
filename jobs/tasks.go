package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/keystone-pm/keystone/internal/leasing"
	"github.com/keystone-pm/keystone/internal/maintenance"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRevenueRecognition triggers the monthly rent recognition run.
	TaskRevenueRecognition = "leasing:revenue_recognition"
	// TaskMaintenanceAmortization triggers the monthly amortization run.
	TaskMaintenanceAmortization = "maintenance:amortization"
)

// MonthlyRunPayload carries the run date for a monthly posting job. An empty
// date means "today", so cron registrations can reuse one static task.
type MonthlyRunPayload struct {
	RunDate string `json:"run_date,omitempty"`
}

func (p MonthlyRunPayload) date(now func() time.Time) (time.Time, error) {
	if p.RunDate == "" {
		return now().UTC(), nil
	}
	return time.Parse("2006-01-02", p.RunDate)
}

// NewRevenueRecognitionTask constructs the recognition task. A zero runDate
// defers date selection to execution time.
func NewRevenueRecognitionTask(runDate time.Time) (*asynq.Task, error) {
	return newMonthlyTask(TaskRevenueRecognition, runDate)
}

// NewMaintenanceAmortizationTask constructs the amortization task.
func NewMaintenanceAmortizationTask(runDate time.Time) (*asynq.Task, error) {
	return newMonthlyTask(TaskMaintenanceAmortization, runDate)
}

func newMonthlyTask(taskType string, runDate time.Time) (*asynq.Task, error) {
	payload := MonthlyRunPayload{}
	if !runDate.IsZero() {
		payload.RunDate = runDate.Format("2006-01-02")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault)), nil
}

// RecognitionRunner is the slice of the leasing service the worker needs.
type RecognitionRunner interface {
	RunMonthlyRecognition(ctx context.Context, runDate time.Time) (leasing.RecognitionResult, error)
}

// AmortizationRunner is the slice of the maintenance service the worker needs.
type AmortizationRunner interface {
	RunMonthlyAmortization(ctx context.Context, runDate time.Time) (maintenance.AmortizationResult, error)
}

// RevenueRecognitionJob runs the monthly recognition behind a per-period run
// lock so overlapping schedules post once.
type RevenueRecognitionJob struct {
	service RecognitionRunner
	locks   *RunLock
	logger  *slog.Logger
	now     func() time.Time
}

// NewRevenueRecognitionJob constructs the job. locks may be nil in tests.
func NewRevenueRecognitionJob(service RecognitionRunner, locks *RunLock, logger *slog.Logger) *RevenueRecognitionJob {
	return &RevenueRecognitionJob{service: service, locks: locks, logger: logger, now: time.Now}
}

// Handle processes TaskRevenueRecognition tasks.
func (j *RevenueRecognitionJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload MonthlyRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	runDate, err := payload.date(j.now)
	if err != nil {
		return asynq.SkipRetry
	}
	period := runDate.Format("2006-01")

	acquired, release, err := acquire(ctx, j.locks, TaskRevenueRecognition, period)
	if err != nil {
		return err
	}
	if !acquired {
		j.logger.Info("revenue recognition already running", slog.String("period", period))
		return nil
	}
	defer release()

	result, err := j.service.RunMonthlyRecognition(ctx, runDate)
	if err != nil {
		return err
	}
	j.logger.Info("revenue recognition run finished",
		slog.String("period", result.Period),
		slog.Int("leases", result.Leases),
		slog.Int("posted", result.Posted),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed))
	return nil
}

// MaintenanceAmortizationJob runs the monthly amortization behind a
// per-period run lock.
type MaintenanceAmortizationJob struct {
	service AmortizationRunner
	locks   *RunLock
	logger  *slog.Logger
	now     func() time.Time
}

// NewMaintenanceAmortizationJob constructs the job. locks may be nil in tests.
func NewMaintenanceAmortizationJob(service AmortizationRunner, locks *RunLock, logger *slog.Logger) *MaintenanceAmortizationJob {
	return &MaintenanceAmortizationJob{service: service, locks: locks, logger: logger, now: time.Now}
}

// Handle processes TaskMaintenanceAmortization tasks.
func (j *MaintenanceAmortizationJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload MonthlyRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	runDate, err := payload.date(j.now)
	if err != nil {
		return asynq.SkipRetry
	}
	period := runDate.Format("2006-01")

	acquired, release, err := acquire(ctx, j.locks, TaskMaintenanceAmortization, period)
	if err != nil {
		return err
	}
	if !acquired {
		j.logger.Info("maintenance amortization already running", slog.String("period", period))
		return nil
	}
	defer release()

	result, err := j.service.RunMonthlyAmortization(ctx, runDate)
	if err != nil {
		return err
	}
	j.logger.Info("maintenance amortization run finished",
		slog.String("period", result.Period),
		slog.Int("contracts", result.Contracts),
		slog.Int("posted", result.Posted),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed))
	return nil
}

func acquire(ctx context.Context, locks *RunLock, task, period string) (bool, func(), error) {
	if locks == nil {
		return true, func() {}, nil
	}
	return locks.Acquire(ctx, task, period)
}
