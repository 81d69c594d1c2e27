package pool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func echoExecutor(_ context.Context, prompt string, _ map[string]any) (any, error) {
	return prompt, nil
}

func failingExecutor(_ context.Context, _ string, _ map[string]any) (any, error) {
	return nil, errors.New("boom")
}

func TestPoolInitializeCreatesExactlyThreeWorkers(t *testing.T) {
	p := New("", echoExecutor)
	p.Initialize(context.Background())
	defer p.Shutdown(time.Second)

	status := p.GetStatus()
	if len(status.Workers) != WorkerCount {
		t.Fatalf("expected %d workers, got %d", WorkerCount, len(status.Workers))
	}
}

func TestPoolExecuteReturnsResult(t *testing.T) {
	p := New("", echoExecutor)
	p.Initialize(context.Background())
	defer p.Shutdown(time.Second)

	result, err := p.Execute(context.Background(), "hello", nil, time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != "hello" {
		t.Fatalf("expected echoed prompt, got %v", result)
	}

	status := p.GetStatus()
	if status.TasksSubmitted != 1 || status.TasksCompleted != 1 {
		t.Fatalf("unexpected counters: %+v", status)
	}
	if status.SuccessRate != 1.0 {
		t.Fatalf("expected success rate 1.0, got %v", status.SuccessRate)
	}
}

func TestPoolExecutePropagatesTaskError(t *testing.T) {
	p := New("", failingExecutor)
	p.Initialize(context.Background())
	defer p.Shutdown(time.Second)

	_, err := p.Execute(context.Background(), "x", nil, time.Second)
	if err == nil {
		t.Fatal("expected error to propagate from task execution")
	}
}

func TestPoolExecuteBatchPreservesOrder(t *testing.T) {
	p := New("", echoExecutor)
	p.Initialize(context.Background())
	defer p.Shutdown(time.Second)

	prompts := []string{"a", "b", "c", "d", "e"}
	results := p.ExecuteBatch(context.Background(), prompts, nil, 2*time.Second)
	if len(results) != len(prompts) {
		t.Fatalf("expected %d results, got %d", len(prompts), len(results))
	}
	for i, want := range prompts {
		if results[i].Err != nil {
			t.Fatalf("result %d: unexpected error %v", i, results[i].Err)
		}
		if results[i].Result != want {
			t.Fatalf("result %d: expected %q, got %v", i, want, results[i].Result)
		}
	}
}

func TestPoolHealthCheckBecomesUnhealthyAfterThreeFailures(t *testing.T) {
	p := New("", failingExecutor)
	p.Initialize(context.Background())
	defer p.Shutdown(time.Second)

	// Failures are counted per worker and tasks spread across all workers,
	// so 3 failures per worker guarantees at least one worker sees 3 in a row.
	for range 3 * WorkerCount {
		_, _ = p.Execute(context.Background(), "x", nil, time.Second)
	}

	health := p.HealthCheck()
	if health.WorkersHealthy == health.WorkersTotal {
		t.Fatalf("expected at least one unhealthy worker after 3 consecutive failures, got %+v", health)
	}
}

func TestPoolShutdownStopsAllWorkers(t *testing.T) {
	p := New("my-pool", echoExecutor)
	p.Initialize(context.Background())

	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	for _, w := range p.workers {
		if w.running.Load() {
			t.Fatalf("worker %s still running after shutdown", w.id)
		}
	}
}
