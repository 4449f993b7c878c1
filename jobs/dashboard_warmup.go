package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/wowdasare/everpack-system-hnd/internal/dashboard"
	jobmetrics "github.com/wowdasare/everpack-system-hnd/internal/jobs"
)

// DashboardWarmupJob refreshes the cached dashboard snapshot.
type DashboardWarmupJob struct {
	Dashboard *dashboard.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewDashboardWarmupJob initialises the warmup handler.
func NewDashboardWarmupJob(svc *dashboard.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Dashboard: svc, Logger: logger, Metrics: metrics}
}

// Handle executes the warmup.
func (j *DashboardWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskDashboardWarmup)
	stats, err := j.Dashboard.Refresh(ctx)
	if err != nil {
		j.Logger.Error("dashboard warmup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("dashboard warmup complete", slog.Time("generated_at", stats.GeneratedAt))
	return tracker.End(nil)
}
