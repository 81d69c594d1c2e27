package sync

import (
	"context"
	"errors"
	"testing"

	domainsync "github.com/lesleslie/session-buddy/internal/domain/sync"
)

type stubMethod struct {
	name      string
	available bool
	result    domainsync.Result
	err       error
}

func (s *stubMethod) MethodName() string { return s.name }

func (s *stubMethod) IsAvailable(_ context.Context) bool { return s.available }

func (s *stubMethod) Sync(_ context.Context, _, _ bool) (domainsync.Result, error) {
	return s.result, s.err
}

func TestSyncMemoriesPrefersCloudWhenBothAvailable(t *testing.T) {
	cloud := &stubMethod{name: "cloud", available: true, result: domainsync.Result{Method: "cloud", Success: true}}
	http := &stubMethod{name: "http", available: true, result: domainsync.Result{Method: "http", Success: true}}

	h := NewHybridAkoshaSync(nil, cloud, http)
	result, err := h.SyncMemories(context.Background(), domainsync.ForceAuto, true, true)
	if err != nil {
		t.Fatalf("SyncMemories: %v", err)
	}
	if result.Method != "cloud" {
		t.Fatalf("expected cloud to be preferred, got %q", result.Method)
	}
}

func TestSyncMemoriesFallsBackToHTTPWhenCloudUnavailable(t *testing.T) {
	cloud := &stubMethod{name: "cloud", available: false}
	http := &stubMethod{name: "http", available: true, result: domainsync.Result{Method: "http", Success: true}}

	h := NewHybridAkoshaSync(nil, cloud, http)
	result, err := h.SyncMemories(context.Background(), domainsync.ForceAuto, true, true)
	if err != nil {
		t.Fatalf("SyncMemories: %v", err)
	}
	if result.Method != "http" {
		t.Fatalf("expected fallback to http, got %q", result.Method)
	}
}

func TestSyncMemoriesFallsBackToHTTPWhenCloudFails(t *testing.T) {
	cloud := &stubMethod{name: "cloud", available: true, err: errors.New("boom")}
	http := &stubMethod{name: "http", available: true, result: domainsync.Result{Method: "http", Success: true}}

	h := NewHybridAkoshaSync(nil, cloud, http)
	result, err := h.SyncMemories(context.Background(), domainsync.ForceAuto, true, true)
	if err != nil {
		t.Fatalf("SyncMemories: %v", err)
	}
	if result.Method != "http" {
		t.Fatalf("expected fallback to http, got %q", result.Method)
	}
}

func TestSyncMemoriesReturnsHybridErrorWhenAllFail(t *testing.T) {
	cloud := &stubMethod{name: "cloud", available: true, err: errors.New("boom")}
	http := &stubMethod{name: "http", available: false}

	h := NewHybridAkoshaSync(nil, cloud, http)
	_, err := h.SyncMemories(context.Background(), domainsync.ForceAuto, true, true)
	if err == nil {
		t.Fatal("expected HybridSyncError when all methods fail")
	}
	var hybridErr *domainsync.HybridSyncError
	if !errors.As(err, &hybridErr) {
		t.Fatalf("expected *domainsync.HybridSyncError, got %T", err)
	}
	if len(hybridErr.Errors) != 2 {
		t.Fatalf("expected 2 recorded failures, got %d", len(hybridErr.Errors))
	}
}

func TestSyncMemoriesForcedMethodNotConfiguredRaisesError(t *testing.T) {
	cloud := &stubMethod{name: "cloud", available: true, result: domainsync.Result{Method: "cloud", Success: true}}

	h := NewHybridAkoshaSync(nil, cloud, nil)
	_, err := h.SyncMemories(context.Background(), domainsync.ForceHTTP, true, true)
	if err == nil {
		t.Fatal("expected error when forced method is not configured")
	}
}

func TestSyncMemoriesForcedMethodRunsDirectly(t *testing.T) {
	cloud := &stubMethod{name: "cloud", available: false, result: domainsync.Result{Method: "cloud", Success: true}}

	h := NewHybridAkoshaSync(nil, cloud, nil)
	result, err := h.SyncMemories(context.Background(), domainsync.ForceCloud, true, true)
	if err != nil {
		t.Fatalf("SyncMemories: %v", err)
	}
	if result.Method != "cloud" {
		t.Fatalf("expected forced cloud method to run despite IsAvailable=false, got %q", result.Method)
	}
}
