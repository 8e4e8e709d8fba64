package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"reimbly/pkg/requestcontext"
)

// RequestID assigns each request a unique ID, honoring an incoming
// X-Request-ID header so IDs propagate across services. The ID is echoed back
// in the response for client-side correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
