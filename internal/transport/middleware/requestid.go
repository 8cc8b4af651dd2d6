package middleware

import (
	"net/http"

	"github.com/frahmantamala/vuln-management/pkg/logger"

	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

// RequestID tags the request logger and the response with a trace id.
// It reuses the id that chi's RequestID middleware already placed in the
// context; uuid is the fallback when that middleware is not mounted.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := chiMiddleware.GetReqID(r.Context())
		if traceID == "" {
			traceID = uuid.NewString()
		}

		// inject into context
		ctx := logger.With(r.Context(), "traceID", traceID)

		// propagate back to response
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
