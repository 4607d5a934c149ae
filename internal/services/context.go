package services

import "context"

type contextKey string

const (
	jobIDKey     contextKey = "job_id"
	tenantKey    contextKey = "tenant"
	envKey       contextKey = "env"
	requestIDKey contextKey = "request_id"
)

// WithJobID annotates context with the render job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the render job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, jobIDKey)
}

// WithTenant annotates context with the tenant that owns the request.
func WithTenant(ctx context.Context, tenant string) context.Context {
	if tenant == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantKey, tenant)
}

// TenantFromContext returns the tenant if present.
func TenantFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, tenantKey)
}

// WithEnv annotates context with the deployment environment of the request.
func WithEnv(ctx context.Context, env string) context.Context {
	if env == "" {
		return ctx
	}
	return context.WithValue(ctx, envKey, env)
}

// EnvFromContext returns the environment if present.
func EnvFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, envKey)
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
