// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware and consumed by services. Keeping this
// package free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	tenantID := requestcontext.TenantID(ctx)
//	corrID := requestcontext.CorrelationID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithTenantID(ctx, tenantID)
package requestcontext

import (
	"context"
	"time"

	id "evigate/pkg/domain"
)

type (
	tenantIDKey      struct{}
	correlationIDKey struct{}
	requestTimeKey   struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyTenantID      = tenantIDKey{}
	ContextKeyCorrelationID = correlationIDKey{}
	ContextKeyRequestTime   = requestTimeKey{}
)

// TenantID retrieves the resolved tenant from the context.
// Returns the zero value (nil UUID) if not set.
func TenantID(ctx context.Context) id.TenantID {
	if tenantID, ok := ctx.Value(ContextKeyTenantID).(id.TenantID); ok {
		return tenantID
	}
	return id.TenantID{}
}

// WithTenantID injects a tenant ID into the context.
func WithTenantID(ctx context.Context, tenantID id.TenantID) context.Context {
	return context.WithValue(ctx, ContextKeyTenantID, tenantID)
}

// CorrelationID retrieves the audit correlation id from the context.
// Every gateway call carries one and every response echoes it.
func CorrelationID(ctx context.Context) string {
	if corrID, ok := ctx.Value(ContextKeyCorrelationID).(string); ok {
		return corrID
	}
	return ""
}

// WithCorrelationID injects a correlation id into the context.
func WithCorrelationID(ctx context.Context, corrID string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, corrID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI, tests).
// Sealing timestamps come from here so a request observes one clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
