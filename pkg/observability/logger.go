package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
	attrRepo    = "repo"
	attrRunID   = "run_id"
)

type runKey struct{}

// runScope identifies the batch run a log record belongs to.
type runScope struct {
	repo  string
	runID string
}

// WithRun returns a context whose log records carry repo and run_id.
func WithRun(ctx context.Context, repo, runID string) context.Context {
	return context.WithValue(ctx, runKey{}, runScope{repo: repo, runID: runID})
}

// RunFromContext returns the repo and run id set by WithRun.
func RunFromContext(ctx context.Context) (repo, runID string, ok bool) {
	scope, ok := ctx.Value(runKey{}).(runScope)

	return scope.repo, scope.runID, ok
}

// ContextHandler is an [slog.Handler] that stamps records with the service
// identity, the active span and the batch run found in the context. Service
// attributes are attached up front so groups never nest them.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler wraps inner with service, env and mode attributes.
func NewContextHandler(inner slog.Handler, service, env string, appMode AppMode) *ContextHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &ContextHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds the span and run attributes, then delegates.
func (h *ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if repo, runID, ok := RunFromContext(ctx); ok {
		record.AddAttrs(slog.String(attrRunID, runID))

		if repo != "" && !hasAttr(record, attrRepo) {
			record.AddAttrs(slog.String(attrRepo, repo))
		}
	}

	err := h.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("log handler: %w", err)
	}

	return nil
}

// WithAttrs returns a handler with attrs added to the inner handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a handler with a group prefix on the inner handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

func hasAttr(record slog.Record, key string) bool {
	found := false

	record.Attrs(func(a slog.Attr) bool {
		found = a.Key == key

		return !found
	})

	return found
}
