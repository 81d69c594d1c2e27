package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "session-buddy"

// Metrics holds every metric instrument this process emits: memory store
// operations, pool task execution, and sync runs.
type Metrics struct {
	StoreOpsTotal     metric.Int64Counter
	StoreOpDuration   metric.Float64Histogram
	PoolTasksRouted   metric.Int64Counter
	PoolTasksFailed   metric.Int64Counter
	PoolTaskDuration  metric.Float64Histogram
	SyncRuns          metric.Int64Counter
	SyncDuration      metric.Float64Histogram
	SyncBytesShipped  metric.Int64Counter
	CategoryEvolved   metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.StoreOpsTotal, err = meter.Int64Counter("session_buddy.store.ops",
		metric.WithDescription("Memory store operations by kind"))
	if err != nil {
		return nil, err
	}

	m.StoreOpDuration, err = meter.Float64Histogram("session_buddy.store.op_duration_seconds",
		metric.WithDescription("Memory store operation duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.PoolTasksRouted, err = meter.Int64Counter("session_buddy.pool.tasks_routed",
		metric.WithDescription("Tasks routed to a worker pool"))
	if err != nil {
		return nil, err
	}

	m.PoolTasksFailed, err = meter.Int64Counter("session_buddy.pool.tasks_failed",
		metric.WithDescription("Tasks that failed execution"))
	if err != nil {
		return nil, err
	}

	m.PoolTaskDuration, err = meter.Float64Histogram("session_buddy.pool.task_duration_seconds",
		metric.WithDescription("Task execution duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.SyncRuns, err = meter.Int64Counter("session_buddy.sync.runs",
		metric.WithDescription("Sync orchestration runs by outcome"))
	if err != nil {
		return nil, err
	}

	m.SyncDuration, err = meter.Float64Histogram("session_buddy.sync.duration_seconds",
		metric.WithDescription("Sync run duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.SyncBytesShipped, err = meter.Int64Counter("session_buddy.sync.bytes_shipped",
		metric.WithDescription("Bytes uploaded or posted during a sync run"))
	if err != nil {
		return nil, err
	}

	m.CategoryEvolved, err = meter.Int64Counter("session_buddy.evolution.categories_evolved",
		metric.WithDescription("Category evolution passes that changed subcategory layout"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
