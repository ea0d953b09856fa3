package testutil

import (
	"net/http"
	"time"

	"paygate/pkg/requestcontext"
)

// WithActor attaches an acting principal to the request context.
// Handlers that record who performed an override read it from there.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithTime pins the request time so date-sensitive assertions are stable.
func WithTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
