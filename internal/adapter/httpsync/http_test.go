package httpsync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lesleslie/session-buddy/internal/domain/sync"
)

type fakeExporter struct {
	records []MemoryRecord
	err     error
}

func (f *fakeExporter) ExportMemoryRecords(_ context.Context, _, _ bool) ([]MemoryRecord, error) {
	return f.records, f.err
}

func TestIsAvailableProbesEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewHttpSyncMethod(sync.Config{HTTPEndpoint: srv.URL}, &fakeExporter{}, nil)
	if !m.IsAvailable(context.Background()) {
		t.Fatal("expected endpoint to be available")
	}
}

func TestIsAvailableFalseOnUnreachable(t *testing.T) {
	m := NewHttpSyncMethod(sync.Config{HTTPEndpoint: "http://127.0.0.1:1"}, &fakeExporter{}, nil)
	if m.IsAvailable(context.Background()) {
		t.Fatal("expected unreachable endpoint to report unavailable")
	}
}

func TestSyncPostsBatchStoreMemories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	exporter := &fakeExporter{records: []MemoryRecord{{Kind: "reflection", Content: "hello"}}}
	m := NewHttpSyncMethod(sync.Config{HTTPEndpoint: srv.URL}, exporter, nil)

	result, err := m.Sync(context.Background(), true, false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !result.Success || result.FilesUploaded != 1 || result.Method != "http" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSyncWrapsRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":false,"error":"disk full"}`))
	}))
	defer srv.Close()

	m := NewHttpSyncMethod(sync.Config{HTTPEndpoint: srv.URL}, &fakeExporter{}, nil)
	_, err := m.Sync(context.Background(), true, true)
	if err == nil {
		t.Fatal("expected error for unsuccessful remote response")
	}
	var httpErr *sync.HTTPSyncError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *sync.HTTPSyncError, got %T", err)
	}
}
