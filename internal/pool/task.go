package pool

import (
	"context"
	"sync"
	"time"

	domainpool "github.com/lesleslie/session-buddy/internal/domain/pool"
)

// Executor runs one task's actual work. It is the out-of-scope collaborator
// the spec calls "execute_task_logic" — the coordinator only schedules and
// reports on execution, it does not define what a task does.
type Executor func(ctx context.Context, prompt string, taskCtx map[string]any) (any, error)

// Task is a single unit of delegated work with a single-fire completion
// signal: done is closed exactly once, by the worker that processes it.
type Task struct {
	ID        string
	Prompt    string
	Context   map[string]any
	CreatedAt time.Time

	mu          sync.Mutex
	status      domainpool.TaskStatus
	startedAt   *time.Time
	completedAt *time.Time
	result      any
	err         error
	done        chan struct{}
}

func newTask(id, prompt string, taskCtx map[string]any) *Task {
	return &Task{
		ID:        id,
		Prompt:    prompt,
		Context:   taskCtx,
		CreatedAt: time.Now().UTC(),
		status:    domainpool.TaskPending,
		done:      make(chan struct{}),
	}
}

func (t *Task) markRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now().UTC()
	t.status = domainpool.TaskRunning
	t.startedAt = &now
}

func (t *Task) setResult(result any) {
	t.mu.Lock()
	now := time.Now().UTC()
	t.status = domainpool.TaskCompleted
	t.completedAt = &now
	t.result = result
	t.mu.Unlock()
	close(t.done)
}

func (t *Task) setError(err error) {
	t.mu.Lock()
	now := time.Now().UTC()
	t.status = domainpool.TaskFailed
	t.completedAt = &now
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

func (t *Task) snapshot() (domainpool.TaskStatus, any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.result, t.err
}
