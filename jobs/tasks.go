package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockAlertScan walks stock levels and raises or resolves
	// alerts.
	TaskStockAlertScan = "inventory:stock_alert_scan"
	// TaskDashboardWarmup recomputes the dashboard snapshot so the
	// cache is warm before the first request.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskIdempotencyCleanup prunes expired submission keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// StockAlertScanPayload configures one scan run.
type StockAlertScanPayload struct {
	// Resolve closes alerts for products whose stock has recovered.
	Resolve bool `json:"resolve"`
}

// NewStockAlertScanTask constructs an Asynq task.
func NewStockAlertScanTask(payload StockAlertScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockAlertScan, data), nil
}

// NewDashboardWarmupTask constructs an Asynq task.
func NewDashboardWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardWarmup, nil)
}

// IdempotencyCleanupPayload configures one cleanup run.
type IdempotencyCleanupPayload struct {
	// RetentionHours keeps keys younger than this window. Zero falls
	// back to 48 hours.
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
