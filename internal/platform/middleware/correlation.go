package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"evigate/pkg/requestcontext"
)

// CorrelationHeader carries the caller's correlation id. One is generated
// when absent; every response echoes it and every audit event records it.
const CorrelationHeader = "X-Correlation-ID"

// Correlation resolves or mints the request's correlation id and stores it
// in the context. Applied before auth so even rejected requests correlate.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get(CorrelationHeader)
		if corrID == "" {
			corrID = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, corrID)

		ctx := requestcontext.WithCorrelationID(r.Context(), corrID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
