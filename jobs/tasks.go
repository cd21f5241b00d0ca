// Package jobs runs the console's background tasks on asynq: the dashboard cache
// warmup, its cron schedule and the queue health endpoint.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// QueueDefault is the only queue the console uses.
const QueueDefault = "default"

// TaskDashboardWarmup refills the cached dashboard metrics and series.
const TaskDashboardWarmup = "dashboard:warmup"

// DashboardWarmupPayload records what triggered a warmup.
type DashboardWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewDashboardWarmupTask builds a warmup task bound to QueueDefault. An empty reason
// means the cron schedule.
func NewDashboardWarmupTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "schedule"
	}
	body, err := json.Marshal(DashboardWarmupPayload{Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode warmup payload: %w", err)
	}
	return asynq.NewTask(TaskDashboardWarmup, body, asynq.Queue(QueueDefault)), nil
}
