package pool

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	domainpool "github.com/lesleslie/session-buddy/internal/domain/pool"
)

// Selector names the strategy route_task uses to pick a pool.
type Selector string

const (
	SelectorLeastLoaded Selector = "least_loaded"
	SelectorRoundRobin  Selector = "round_robin"
	SelectorRandom      Selector = "random"
)

// Manager owns a set of named pools, guarded by a mutex, and routes tasks
// across them under a named selector strategy.
type Manager struct {
	execute Executor

	mu          sync.Mutex
	pools       map[string]*Pool
	order       []string // insertion order, for round_robin
	roundRobinN int
	running     bool
}

// NewManager constructs an empty, running Manager.
func NewManager(execute Executor) *Manager {
	return &Manager{
		execute: execute,
		pools:   make(map[string]*Pool),
		running: true,
	}
}

// CreatePool creates and initializes a new pool, rejecting duplicate ids.
func (m *Manager) CreatePool(ctx context.Context, id string) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if _, exists := m.pools[id]; exists {
			return nil, fmt.Errorf("pool %q already exists", id)
		}
	}

	p := New(id, m.execute)
	p.Initialize(ctx)
	m.pools[p.ID()] = p
	m.order = append(m.order, p.ID())
	return p, nil
}

// GetPool returns the pool with the given id, if any.
func (m *Manager) GetPool(id string) (*Pool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[id]
	return p, ok
}

// DeletePool shuts down and removes a pool.
func (m *Manager) DeletePool(id string, timeout time.Duration) error {
	m.mu.Lock()
	p, ok := m.pools[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("pool %q does not exist", id)
	}
	delete(m.pools, id)
	m.order = removeString(m.order, id)
	m.mu.Unlock()

	return p.Shutdown(timeout)
}

// ListPools returns every known pool id.
func (m *Manager) ListPools() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// GetHealthStatus aggregates health_check() across every pool.
func (m *Manager) GetHealthStatus() map[string]domainpool.PoolHealth {
	m.mu.Lock()
	pools := make([]*Pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.Unlock()

	out := make(map[string]domainpool.PoolHealth, len(pools))
	for _, p := range pools {
		out[p.ID()] = p.HealthCheck()
	}
	return out
}

// ExecuteOnPool runs a task on a specific pool by id.
func (m *Manager) ExecuteOnPool(ctx context.Context, id, prompt string, taskCtx map[string]any, timeout time.Duration) (any, error) {
	p, ok := m.GetPool(id)
	if !ok {
		return nil, fmt.Errorf("pool %q does not exist", id)
	}
	return p.Execute(ctx, prompt, taskCtx, timeout)
}

// RouteTask picks a pool under the named selector strategy and executes
// the task on it, returning which pool was chosen.
func (m *Manager) RouteTask(ctx context.Context, prompt string, taskCtx map[string]any, selector Selector, timeout time.Duration) (string, any, error) {
	p, err := m.selectPool(selector)
	if err != nil {
		return "", nil, err
	}
	result, err := p.Execute(ctx, prompt, taskCtx, timeout)
	return p.ID(), result, err
}

func (m *Manager) selectPool(selector Selector) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) == 0 {
		return nil, fmt.Errorf("no pools available to route to")
	}

	switch selector {
	case SelectorLeastLoaded:
		best := m.pools[m.order[0]]
		for _, id := range m.order[1:] {
			candidate := m.pools[id]
			if candidate.QueueLength() < best.QueueLength() {
				best = candidate
			}
		}
		return best, nil
	case SelectorRoundRobin:
		id := m.order[m.roundRobinN%len(m.order)]
		m.roundRobinN++
		return m.pools[id], nil
	case SelectorRandom:
		id := m.order[rand.IntN(len(m.order))]
		return m.pools[id], nil
	default:
		return nil, fmt.Errorf("unknown pool selector %q", selector)
	}
}

func removeString(items []string, target string) []string {
	out := items[:0]
	for _, s := range items {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
