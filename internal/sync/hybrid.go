// Package sync wires the cloud and HTTP sync methods into one orchestrator
// that tries them in priority order and falls back on failure.
package sync

import (
	"context"
	"log/slog"

	domainsync "github.com/lesleslie/session-buddy/internal/domain/sync"
)

// HybridAkoshaSync tries configured sync methods in priority order,
// falling back to the next on failure or unavailability.
type HybridAkoshaSync struct {
	methods []domainsync.Method
	logger  *slog.Logger
}

// NewHybridAkoshaSync constructs the orchestrator with methods in the fixed
// priority order [cloud, http]. A nil method (e.g. cloud not configured) is
// dropped from the list.
func NewHybridAkoshaSync(logger *slog.Logger, cloud, http domainsync.Method) *HybridAkoshaSync {
	var methods []domainsync.Method
	if cloud != nil {
		methods = append(methods, cloud)
	}
	if http != nil {
		methods = append(methods, http)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridAkoshaSync{methods: methods, logger: logger}
}

func (h *HybridAkoshaSync) byName(name string) domainsync.Method {
	for _, m := range h.methods {
		if m.MethodName() == name {
			return m
		}
	}
	return nil
}

// SyncMemories runs the configured sync methods per forceMethod, returning
// the first successful result or a HybridSyncError aggregating every
// attempted method's failure.
func (h *HybridAkoshaSync) SyncMemories(ctx context.Context, forceMethod domainsync.ForceMethod, uploadReflections, uploadKnowledgeGraph bool) (domainsync.Result, error) {
	if forceMethod != "" && forceMethod != domainsync.ForceAuto {
		method := h.byName(string(forceMethod))
		if method == nil {
			return domainsync.Result{}, &domainsync.HybridSyncError{
				Errors: []domainsync.MethodFailure{{Method: string(forceMethod), Error: "method not configured"}},
			}
		}
		result, err := method.Sync(ctx, uploadReflections, uploadKnowledgeGraph)
		if err != nil {
			return domainsync.Result{}, &domainsync.HybridSyncError{
				Errors: []domainsync.MethodFailure{{Method: method.MethodName(), Error: err.Error()}},
			}
		}
		return result, nil
	}

	var failures []domainsync.MethodFailure
	for _, method := range h.methods {
		if !method.IsAvailable(ctx) {
			failures = append(failures, domainsync.MethodFailure{Method: method.MethodName(), Error: "not available"})
			continue
		}

		result, err := method.Sync(ctx, uploadReflections, uploadKnowledgeGraph)
		if err != nil {
			failures = append(failures, domainsync.MethodFailure{Method: method.MethodName(), Error: err.Error()})
			continue
		}
		if !result.Success {
			reason := result.Error
			if reason == "" {
				reason = "sync reported failure"
			}
			failures = append(failures, domainsync.MethodFailure{Method: method.MethodName(), Error: reason})
			continue
		}

		h.logger.Info("sync completed", "method", method.MethodName(), "upload_id", result.UploadID)
		return result, nil
	}

	return domainsync.Result{}, &domainsync.HybridSyncError{Errors: failures}
}

// MethodNames returns the configured methods in priority order, for
// diagnostics.
func (h *HybridAkoshaSync) MethodNames() []string {
	names := make([]string, 0, len(h.methods))
	for _, m := range h.methods {
		names = append(names, m.MethodName())
	}
	return names
}
