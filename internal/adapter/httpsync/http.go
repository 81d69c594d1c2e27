// Package httpsync implements the HTTP fallback sync method: it posts a
// batch_store_memories tool call to a local MCP server instead of an
// object store, used when the cloud method is unavailable or disabled.
package httpsync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/lesleslie/session-buddy/internal/domain/sync"
	"github.com/lesleslie/session-buddy/internal/resilience"
)

const defaultEndpoint = "http://localhost:8682/mcp"

// Exporter produces the memory records to send in a batch_store_memories
// call. Distinct from objectstore.Exporter: it hands back structured
// records instead of file bytes, since the HTTP method ships them as a
// JSON-RPC payload rather than uploaded files.
type Exporter interface {
	ExportMemoryRecords(ctx context.Context, includeReflections, includeKnowledgeGraph bool) ([]MemoryRecord, error)
}

// MemoryRecord is one item sent in a batch_store_memories call.
type MemoryRecord struct {
	Kind    string         `json:"kind"`
	Content string         `json:"content"`
	Meta    map[string]any `json:"metadata,omitempty"`
}

type toolCallRequest struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

type toolCallResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HttpSyncMethod posts memory records to a local MCP endpoint.
type HttpSyncMethod struct {
	endpoint     string
	systemID     string
	probeTimeout time.Duration
	httpClient   *http.Client
	breaker      *resilience.Breaker
	exporter     Exporter
}

// NewHttpSyncMethod builds the HTTP fallback sync method. An empty endpoint
// falls back to the default local MCP address.
func NewHttpSyncMethod(cfg sync.Config, exporter Exporter, breaker *resilience.Breaker) *HttpSyncMethod {
	endpoint := cfg.HTTPEndpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	probeTimeout := time.Duration(cfg.HTTPProbeTimeoutMS) * time.Millisecond
	if probeTimeout <= 0 {
		probeTimeout = time.Second
	}
	timeout := time.Duration(cfg.UploadTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HttpSyncMethod{
		endpoint:     endpoint,
		systemID:     cfg.SystemIDOrHostname(),
		probeTimeout: probeTimeout,
		httpClient:   &http.Client{Timeout: timeout},
		breaker:      breaker,
		exporter:     exporter,
	}
}

// MethodName implements sync.Method.
func (h *HttpSyncMethod) MethodName() string { return "http" }

// IsAvailable probes the MCP endpoint with a short timeout, per the spec's
// requirement that availability checks not block a session-end sync.
func (h *HttpSyncMethod) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, h.endpoint, http.NoBody)
	if err != nil {
		return false
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < 500
}

// Sync exports memory records and posts them as a single batch_store_memories
// tool call.
func (h *HttpSyncMethod) Sync(ctx context.Context, uploadReflections, uploadKnowledgeGraph bool) (sync.Result, error) {
	start := time.Now()

	records, err := h.exporter.ExportMemoryRecords(ctx, uploadReflections, uploadKnowledgeGraph)
	if err != nil {
		return sync.Result{}, &sync.HTTPSyncError{Method: h.MethodName(), Cause: err}
	}

	body, err := gojson.Marshal(toolCallRequest{
		Tool:   "batch_store_memories",
		Params: map[string]any{"memories": records, "source": h.systemID},
	})
	if err != nil {
		return sync.Result{}, &sync.HTTPSyncError{Method: h.MethodName(), Cause: err}
	}

	var respBody []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("post batch_store_memories: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("mcp endpoint error %d: %s", resp.StatusCode, string(data))
		}
		respBody = data
		return nil
	}

	if h.breaker != nil {
		err = h.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return sync.Result{}, &sync.HTTPSyncError{Method: h.MethodName(), Cause: err}
	}

	var parsed toolCallResponse
	if err := gojson.Unmarshal(respBody, &parsed); err != nil {
		return sync.Result{}, &sync.HTTPSyncError{Method: h.MethodName(), Cause: err}
	}
	if !parsed.Success {
		return sync.Result{}, &sync.HTTPSyncError{Method: h.MethodName(), Cause: fmt.Errorf("%s", parsed.Error)}
	}

	return sync.Result{
		Method:          h.MethodName(),
		Success:         true,
		FilesUploaded:   len(records),
		DurationSeconds: time.Since(start).Seconds(),
	}, nil
}
