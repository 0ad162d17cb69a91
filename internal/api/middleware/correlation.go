package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderCorrelationID is the header a trigger or caller uses to thread its
// own request ID through the pipeline's logs.
const HeaderCorrelationID = "X-Correlation-ID"

// maxCorrelationIDLen caps caller-supplied IDs so a hostile value cannot
// bloat every log line of the invocation.
const maxCorrelationIDLen = 64

type contextKey struct{}

// CorrelationID tags every request with a correlation ID: the caller's
// header value when usable, a fresh UUID otherwise. The ID is stored on the
// request context and echoed in the response header so one trigger
// invocation can be matched to its dispatch log lines.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderCorrelationID)
		if id == "" || len(id) > maxCorrelationIDLen {
			id = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), contextKey{}, id)
		w.Header().Set(HeaderCorrelationID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID retrieves the correlation ID stored by the middleware.
// Returns an empty string if the middleware was not applied.
func GetCorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(contextKey{}).(string)
	return v
}

// CorrelationField returns the request's correlation ID as a zap field.
// Handlers use it so the field name stays consistent across the codebase.
func CorrelationField(ctx context.Context) zap.Field {
	return zap.String("correlation_id", GetCorrelationID(ctx))
}
