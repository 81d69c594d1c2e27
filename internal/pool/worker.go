package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	domainpool "github.com/lesleslie/session-buddy/internal/domain/pool"
)

const (
	maxConsecutiveFailures = 3
	idleUnhealthyAfter     = 5 * time.Minute
	queuePollInterval      = time.Second
)

// Worker drains a shared task queue, executing each task via the pool's
// Executor and tracking its own health. Three consecutive execution
// failures, or an idle period past idleUnhealthyAfter while running, mark
// it unhealthy.
type Worker struct {
	id       string
	poolID   string
	queue    chan *Task
	execute  Executor

	running atomic.Bool

	mu                  sync.Mutex
	tasksProcessed      int64
	tasksSucceeded      int64
	tasksFailed         int64
	totalProcessingTime time.Duration
	lastActivity        *time.Time
	healthy             bool
	consecutiveFailures int

	stopCh chan struct{}
	doneCh chan struct{}
}

func newWorker(id, poolID string, queue chan *Task, execute Executor) *Worker {
	return &Worker{
		id:      id,
		poolID:  poolID,
		queue:   queue,
		execute: execute,
		healthy: true,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// start spawns the worker's poll loop.
func (w *Worker) start(ctx context.Context) {
	w.running.Store(true)
	go w.loop(ctx)
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.doneCh)
	for w.running.Load() {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case task := <-w.queue:
			w.runTask(ctx, task)
		case <-time.After(queuePollInterval):
			// re-check running/stop periodically
		}
	}
}

func (w *Worker) runTask(ctx context.Context, task *Task) {
	task.markRunning()
	start := time.Now()

	result, err := w.execute(ctx, task.Prompt, task.Context)

	w.mu.Lock()
	w.tasksProcessed++
	w.totalProcessingTime += time.Since(start)
	now := time.Now().UTC()
	w.lastActivity = &now
	if err != nil {
		w.tasksFailed++
		w.consecutiveFailures++
		if w.consecutiveFailures >= maxConsecutiveFailures {
			w.healthy = false
		}
	} else {
		w.tasksSucceeded++
		w.consecutiveFailures = 0
		w.healthy = true
	}
	w.mu.Unlock()

	if err != nil {
		task.setError(err)
	} else {
		task.setResult(result)
	}
}

// stop flips running to false and waits up to timeout for the loop to
// exit, forcing cancellation via stopCh on timeout.
func (w *Worker) stop(timeout time.Duration) {
	w.running.Store(false)
	select {
	case <-w.doneCh:
		return
	case <-time.After(timeout):
		close(w.stopCh)
		<-w.doneCh
	}
}

func (w *Worker) health() domainpool.WorkerHealth {
	w.mu.Lock()
	defer w.mu.Unlock()

	healthy := w.healthy
	if w.running.Load() && w.lastActivity != nil && time.Since(*w.lastActivity) > idleUnhealthyAfter {
		healthy = false
	}

	return domainpool.WorkerHealth{
		WorkerID:            w.id,
		Running:             w.running.Load(),
		Healthy:             healthy,
		TasksProcessed:      w.tasksProcessed,
		TasksSucceeded:      w.tasksSucceeded,
		TasksFailed:         w.tasksFailed,
		TotalProcessingTime: w.totalProcessingTime,
		LastActivity:        w.lastActivity,
		HealthCheckFailures: w.consecutiveFailures,
	}
}
