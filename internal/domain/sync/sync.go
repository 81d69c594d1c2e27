// Package sync defines the domain types shared by the hybrid sync
// orchestrator and its methods: configuration, results, and the protocol
// every sync method implements.
package sync

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ForceMethod selects which sync method is used, bypassing priority order.
type ForceMethod string

const (
	ForceAuto  ForceMethod = "auto"
	ForceCloud ForceMethod = "cloud"
	ForceHTTP  ForceMethod = "http"
)

// Config is the frozen sync configuration for one session.
type Config struct {
	CloudBucket   string
	CloudEndpoint string
	CloudRegion   string
	SystemID      string

	UploadOnSessionEnd bool
	EnableFallback     bool
	ForceMethod        ForceMethod

	UploadTimeoutSeconds int
	MaxRetries           int
	RetryBackoffSeconds  float64

	EnableCompression   bool
	EnableDeduplication bool
	ChunkSizeMB         int

	HTTPEndpoint        string
	HTTPProbeTimeoutMS  int
}

// CloudConfigured reports whether a cloud bucket is configured.
func (c Config) CloudConfigured() bool { return c.CloudBucket != "" }

// ShouldUseCloud reports whether the cloud method should be attempted.
func (c Config) ShouldUseCloud() bool {
	if c.ForceMethod == ForceHTTP {
		return false
	}
	return c.CloudConfigured()
}

// ShouldUseHTTP reports whether the HTTP fallback should be attempted.
func (c Config) ShouldUseHTTP() bool {
	if c.ForceMethod == ForceCloud {
		return false
	}
	return c.EnableFallback || c.ForceMethod == ForceHTTP
}

// SystemIDOrHostname returns SystemID, defaulting to the local hostname.
func (c Config) SystemIDOrHostname() string {
	if c.SystemID != "" {
		return c.SystemID
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "session-buddy"
}

// Result is a sync method's outcome, or the hybrid orchestrator's chosen
// successful outcome.
type Result struct {
	Method            string
	Success           bool
	FilesUploaded     int
	BytesTransferred  int64
	DurationSeconds   float64
	UploadID          string
	Error             string
}

// Method is the protocol every sync method implements.
type Method interface {
	Sync(ctx context.Context, uploadReflections, uploadKnowledgeGraph bool) (Result, error)
	IsAvailable(ctx context.Context) bool
	MethodName() string
}

// CloudUploadError wraps a transport failure from the cloud method.
type CloudUploadError struct {
	Method string
	Cause  error
}

func (e *CloudUploadError) Error() string {
	return fmt.Sprintf("cloud upload via %s failed: %v", e.Method, e.Cause)
}

func (e *CloudUploadError) Unwrap() error { return e.Cause }

// HTTPSyncError wraps a transport failure from the HTTP fallback method.
type HTTPSyncError struct {
	Method string
	Cause  error
}

func (e *HTTPSyncError) Error() string {
	return fmt.Sprintf("http sync via %s failed: %v", e.Method, e.Cause)
}

func (e *HTTPSyncError) Unwrap() error { return e.Cause }

// MethodFailure records one attempted method's failure reason for
// HybridSyncError.
type MethodFailure struct {
	Method string
	Error  string
}

// HybridSyncError is raised when no configured method succeeds, or when a
// forced method isn't configured.
type HybridSyncError struct {
	Errors []MethodFailure
}

func (e *HybridSyncError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, f := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Method, f.Error))
	}
	return "hybrid sync failed: " + strings.Join(parts, "; ")
}
