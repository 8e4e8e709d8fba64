// Package testutil provides helpers shared by handler and integration tests.
package testutil

import (
	"net/http"
	"time"

	"reimbly/pkg/domain"
	"reimbly/pkg/requestcontext"
)

// WithActor injects an authenticated actor into the request context, the way
// the identity middleware would for a real request.
func WithActor(req *http.Request, actor domain.UserID) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actor))
}

// WithTime pins the request-scoped clock so handlers under test produce
// deterministic timestamps.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
