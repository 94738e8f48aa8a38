package testutil

import (
	"net/http"

	"scholarops/pkg/requestcontext"
)

// WithActor adds the acting staff member to the request context, as the
// actor middleware would for a request carrying X-Actor-ID.
func WithActor(req *http.Request, actorID string) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actorID))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
