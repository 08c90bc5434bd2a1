package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan is the task type for the periodic low-stock scan.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskDailySalesReport is the task type for the daily sales report warmup.
	TaskDailySalesReport = "sales:daily_report"
)

// LowStockScanPayload carries the threshold for one scan run.
type LowStockScanPayload struct {
	Umbral       int64     `json:"umbral"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for a low-stock scan.
func NewLowStockScanTask(umbral int64, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{Umbral: umbral, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// DailySalesReportPayload names the day to precompute.
type DailySalesReportPayload struct {
	Fecha string `json:"fecha"`
}

// NewDailySalesReportTask constructs an Asynq task for the daily report warmup.
// An empty fecha means the previous calendar day at run time.
func NewDailySalesReportTask(fecha string) (*asynq.Task, error) {
	body, err := json.Marshal(DailySalesReportPayload{Fecha: fecha})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailySalesReport, body, asynq.Queue(QueueDefault)), nil
}
