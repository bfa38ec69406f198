package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "evigate/pkg/domain"
	"evigate/pkg/requestcontext"
)

// TenantValidator validates a bearer token and resolves the tenant it
// scopes.
type TenantValidator interface {
	ValidateTenant(tokenString string) (id.TenantID, error)
}

// RequireTenant rejects requests without a valid tenant-scoped bearer token
// and injects the resolved tenant into the request context. Services read
// it via requestcontext.TenantID; tenant identity never comes from the
// request body.
func RequireTenant(validator TenantValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized - missing bearer token",
					"correlation_id", requestcontext.CorrelationID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			tenantID, err := validator.ValidateTenant(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized - token rejected",
					"error", err,
					"correlation_id", requestcontext.CorrelationID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithTenantID(ctx, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
