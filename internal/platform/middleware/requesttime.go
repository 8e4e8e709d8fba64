package middleware

import (
	"net/http"
	"time"

	"reimbly/pkg/requestcontext"
)

// RequestTime pins a single timestamp for the whole request so every
// component that needs "now" (decision timestamps, last-updated fields) agrees
// on the same instant.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
