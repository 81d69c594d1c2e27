package fingerprint

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gets  int
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.store[key]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.store, key)
	return nil
}

func TestCachingComputerCachesAcrossCalls(t *testing.T) {
	store := newFakeCache()
	c := NewCachingComputer(store)

	ctx := context.Background()
	sig1, err := c.Compute(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	sig2, err := c.Compute(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if sig1 != sig2 {
		t.Fatal("expected identical signatures for identical text")
	}
	if len(store.store) != 1 {
		t.Fatalf("expected exactly one cache entry, got %d", len(store.store))
	}
}

func TestCachingComputerFallsBackWithNilCache(t *testing.T) {
	c := NewCachingComputer(nil)
	sig, err := c.Compute(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if sig != Compute("hello") {
		t.Fatal("expected uncached Compute to match direct Compute")
	}
}
