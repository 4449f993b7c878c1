package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/wowdasare/everpack-system-hnd/internal/inventory"
	jobmetrics "github.com/wowdasare/everpack-system-hnd/internal/jobs"
)

// StockAlertScanJob walks every active product and keeps the stock
// alert table in step with the movement ledger.
type StockAlertScanJob struct {
	Inventory *inventory.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewStockAlertScanJob initialises the scan handler.
func NewStockAlertScanJob(inv *inventory.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockAlertScanJob {
	return &StockAlertScanJob{Inventory: inv, Logger: logger, Metrics: metrics}
}

// Handle executes the scan.
func (j *StockAlertScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("stock alert scan: handler not configured")
	}
	var payload StockAlertScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskStockAlertScan)
	result, err := j.Inventory.ScanAlerts(ctx, payload.Resolve)
	if err != nil {
		j.Logger.Error("stock alert scan failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.AddStockAlerts(string(inventory.AlertLowStock), result.LowStock)
	j.Metrics.AddStockAlerts(string(inventory.AlertOutOfStock), result.OutOfStock)
	j.Logger.Info("stock alert scan complete",
		slog.Int("created", result.AlertsCreated),
		slog.Int("resolved", result.AlertsResolved))
	return tracker.End(nil)
}
