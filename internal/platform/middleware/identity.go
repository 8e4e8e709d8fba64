package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"reimbly/pkg/domain"
	"reimbly/pkg/requestcontext"
)

// Identity extracts the caller identity and places it on the request context.
// Authentication itself happens upstream (gateway or session layer); this
// middleware only recovers the established identity, either from a bearer
// token's subject claim or, for trusted internal callers, from the X-Actor-ID
// header.
//
// Requests without a resolvable identity still proceed: handlers that require
// an actor reject them with a typed error.
func Identity(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if actor := actorFromBearer(r, signingKey, logger); !actor.IsEmpty() {
				ctx = requestcontext.WithActorID(ctx, actor)
			} else if header := r.Header.Get("X-Actor-ID"); header != "" {
				ctx = requestcontext.WithActorID(ctx, domain.UserID(header))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func actorFromBearer(r *http.Request, signingKey string, logger *slog.Logger) domain.UserID {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(signingKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if logger != nil {
			logger.DebugContext(r.Context(), "bearer token rejected", "error", err)
		}
		return ""
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ""
	}
	return domain.UserID(sub)
}
