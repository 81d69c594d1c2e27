// Package pool defines the domain types shared by the worker-pool scheduler:
// task lifecycle, worker health, and pool/manager status snapshots.
package pool

import "time"

// TaskStatus is the lifecycle state of a single delegated task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// HealthState is the aggregate health of a pool.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthNotRunning HealthState = "not_running"
)

// WorkerHealth is a point-in-time health snapshot of one worker.
type WorkerHealth struct {
	WorkerID              string
	Running               bool
	Healthy               bool
	TasksProcessed        int64
	TasksSucceeded        int64
	TasksFailed           int64
	TotalProcessingTime   time.Duration
	LastActivity          *time.Time
	HealthCheckFailures   int
}

// PoolHealth is the health_check() result for a single pool.
type PoolHealth struct {
	PoolID        string
	Status        HealthState
	WorkersHealthy int
	WorkersTotal   int
	WorkerHealth   []WorkerHealth
}

// PoolStatus is the get_status() result for a single pool.
type PoolStatus struct {
	PoolID         string
	Running        bool
	CreatedAt      time.Time
	StartedAt      *time.Time
	TasksSubmitted int64
	TasksCompleted int64
	TasksFailed    int64
	SuccessRate    float64
	Workers        []WorkerHealth
}

// BatchResult is one element of execute_batch's result list: either a
// successful result or the error observed for that prompt, preserved
// in-place rather than aborting the batch.
type BatchResult struct {
	Result any
	Err    error
}
