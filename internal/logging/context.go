package logging

import (
	"context"
	"log/slog"

	"reelplan/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for render job identifiers.
	FieldJobID = "job_id"
	// FieldTenant is the standardized structured logging key for the tenant scope.
	FieldTenant = "tenant"
	// FieldEnv is the standardized structured logging key for the environment scope.
	FieldEnv = "env"
	// FieldProjectID identifies the project being compiled.
	FieldProjectID = "project_id"
	// FieldClipID identifies the clip a decision or warning refers to.
	FieldClipID = "clip_id"
	// FieldSegmentIndex is the 0-based segment index within a chunked render.
	FieldSegmentIndex = "segment_index"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the branch point a decision log describes.
	FieldDecisionType = "decision_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if tenant, ok := services.TenantFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTenant, tenant))
	}
	if env, ok := services.EnvFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEnv, env))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
