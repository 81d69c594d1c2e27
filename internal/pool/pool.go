// Package pool implements the worker-pool scheduler: fixed-size pools of
// three workers draining a shared FIFO queue, plus a pool manager that
// creates pools and routes tasks across them by a named strategy.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	domainpool "github.com/lesleslie/session-buddy/internal/domain/pool"
)

// WorkerCount is the fixed number of workers every pool owns.
const WorkerCount = 3

const queueCapacity = 256

// Pool owns exactly three workers sharing one FIFO task queue.
type Pool struct {
	id        string
	execute   Executor
	queue     chan *Task
	workers   []*Worker
	createdAt time.Time
	startedAt *time.Time
	running   atomic.Bool

	taskSeq        int64
	tasksSubmitted int64
	tasksCompleted int64
	tasksFailed    int64

	mu sync.Mutex
}

// New constructs a Pool. If id is empty a uuid is generated.
func New(id string, execute Executor) *Pool {
	if id == "" {
		id = uuid.NewString()
	}
	return &Pool{
		id:        id,
		execute:   execute,
		queue:     make(chan *Task, queueCapacity),
		createdAt: time.Now().UTC(),
	}
}

// ID returns the pool's identifier.
func (p *Pool) ID() string { return p.id }

// Initialize creates exactly three workers bound to the shared queue and
// starts them.
func (p *Pool) Initialize(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range WorkerCount {
		w := newWorker(fmt.Sprintf("%s-worker-%d", p.id, i), p.id, p.queue, p.execute)
		w.start(ctx)
		p.workers = append(p.workers, w)
	}
	now := time.Now().UTC()
	p.startedAt = &now
	p.running.Store(true)
}

// Shutdown stops all workers concurrently, waiting up to timeout for each.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.running.Store(false)

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.stop(timeout)
		}(w)
	}
	wg.Wait()
	return nil
}

func (p *Pool) nextTaskID() string {
	n := atomic.AddInt64(&p.taskSeq, 1)
	return fmt.Sprintf("%s-task-%d", p.id, n)
}

// Execute enqueues a task and blocks until it completes or timeout elapses.
func (p *Pool) Execute(ctx context.Context, prompt string, taskCtx map[string]any, timeout time.Duration) (any, error) {
	task := newTask(p.nextTaskID(), prompt, taskCtx)
	atomic.AddInt64(&p.tasksSubmitted, 1)

	select {
	case p.queue <- task:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-task.done:
		_, result, err := task.snapshot()
		p.recordOutcome(err)
		return result, err
	case <-timer.C:
		return nil, fmt.Errorf("task %s: timed out waiting for result after %s", task.ID, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ExecuteBatch enqueues all prompts and awaits every completion signal,
// returning results in the same order as the input regardless of
// completion order; a per-task failure is preserved in-place.
func (p *Pool) ExecuteBatch(ctx context.Context, prompts []string, taskCtx map[string]any, timeout time.Duration) []domainpool.BatchResult {
	tasks := make([]*Task, len(prompts))
	for i, prompt := range prompts {
		task := newTask(p.nextTaskID(), prompt, taskCtx)
		tasks[i] = task
		atomic.AddInt64(&p.tasksSubmitted, 1)
		select {
		case p.queue <- task:
		case <-ctx.Done():
		}
	}

	results := make([]domainpool.BatchResult, len(tasks))
	for i, task := range tasks {
		timer := time.NewTimer(timeout)
		select {
		case <-task.done:
			_, result, err := task.snapshot()
			p.recordOutcome(err)
			results[i] = domainpool.BatchResult{Result: result, Err: err}
		case <-timer.C:
			results[i] = domainpool.BatchResult{Err: fmt.Errorf("task %s: timed out waiting for result after %s", task.ID, timeout)}
		case <-ctx.Done():
			results[i] = domainpool.BatchResult{Err: ctx.Err()}
		}
		timer.Stop()
	}
	return results
}

func (p *Pool) recordOutcome(err error) {
	if err != nil {
		atomic.AddInt64(&p.tasksFailed, 1)
	} else {
		atomic.AddInt64(&p.tasksCompleted, 1)
	}
}

// QueueLength reports the number of tasks currently queued, used by the
// pool manager's least_loaded selector.
func (p *Pool) QueueLength() int { return len(p.queue) }

// HealthCheck aggregates worker health into a single status.
func (p *Pool) HealthCheck() domainpool.PoolHealth {
	p.mu.Lock()
	workers := make([]*Worker, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	health := make([]domainpool.WorkerHealth, len(workers))
	healthyCount := 0
	for i, w := range workers {
		h := w.health()
		health[i] = h
		if h.Healthy {
			healthyCount++
		}
	}

	status := domainpool.HealthNotRunning
	if p.running.Load() {
		switch {
		case len(workers) == 0:
			status = domainpool.HealthNotRunning
		case healthyCount == len(workers):
			status = domainpool.HealthHealthy
		case healthyCount > 0:
			status = domainpool.HealthDegraded
		default:
			status = domainpool.HealthDegraded
		}
	}

	return domainpool.PoolHealth{
		PoolID:         p.id,
		Status:         status,
		WorkersHealthy: healthyCount,
		WorkersTotal:   len(workers),
		WorkerHealth:   health,
	}
}

// GetStatus returns the full status record for this pool.
func (p *Pool) GetStatus() domainpool.PoolStatus {
	p.mu.Lock()
	workers := make([]*Worker, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	health := make([]domainpool.WorkerHealth, len(workers))
	for i, w := range workers {
		health[i] = w.health()
	}

	submitted := atomic.LoadInt64(&p.tasksSubmitted)
	completed := atomic.LoadInt64(&p.tasksCompleted)
	failed := atomic.LoadInt64(&p.tasksFailed)

	successRate := 1.0
	if submitted > 0 {
		successRate = float64(completed) / float64(submitted)
	}

	return domainpool.PoolStatus{
		PoolID:         p.id,
		Running:        p.running.Load(),
		CreatedAt:      p.createdAt,
		StartedAt:      p.startedAt,
		TasksSubmitted: submitted,
		TasksCompleted: completed,
		TasksFailed:    failed,
		SuccessRate:    successRate,
		Workers:        health,
	}
}
