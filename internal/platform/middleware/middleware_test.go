package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimbly/pkg/domain"
	"reimbly/pkg/requestcontext"
)

const testSigningKey = "test-signing-key"

func signedToken(t *testing.T, subject string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return raw
}

func captureActor(t *testing.T, req *http.Request) domain.UserID {
	t.Helper()
	var actor domain.UserID
	handler := Identity(testSigningKey, nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		actor = requestcontext.ActorID(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return actor
}

func TestIdentity(t *testing.T) {
	t.Run("bearer token subject becomes the actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, "alice", jwt.SigningMethodHS256))

		assert.Equal(t, domain.UserID("alice"), captureActor(t, req))
	})

	t.Run("header fallback for trusted callers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Actor-ID", "bob")

		assert.Equal(t, domain.UserID("bob"), captureActor(t, req))
	})

	t.Run("valid bearer wins over the header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, "alice", jwt.SigningMethodHS256))
		req.Header.Set("X-Actor-ID", "bob")

		assert.Equal(t, domain.UserID("alice"), captureActor(t, req))
	})

	t.Run("bad signature yields no actor", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"})
		raw, err := token.SignedString([]byte("some-other-key"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)

		assert.True(t, captureActor(t, req).IsEmpty())
	})

	t.Run("request without credentials proceeds anonymously", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.True(t, captureActor(t, req).IsEmpty())
	})
}

func TestRequestID(t *testing.T) {
	t.Run("honors incoming header", func(t *testing.T) {
		var got string
		handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got = requestcontext.RequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "upstream-id", got)
		assert.Equal(t, "upstream-id", rec.Header().Get("X-Request-ID"))
	})

	t.Run("generates and echoes an ID when absent", func(t *testing.T) {
		var got string
		handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got = requestcontext.RequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, got)
		assert.Equal(t, got, rec.Header().Get("X-Request-ID"))
	})
}

func TestRequestTime(t *testing.T) {
	var got time.Time
	handler := RequestTime(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.Now(r.Context())
	}))

	before := time.Now().UTC()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	after := time.Now().UTC()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
	assert.Equal(t, time.UTC, got.Location())
}
