// internal/middleware/identity.go
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Per-request identity: a correlation id for tracing and an opaque actor id
// for the event log. Identity resolution lives outside this service; the
// upstream layer passes whatever actor string it has in X-Actor-Id and events
// store it as-is.

type ctxKeyRequestID struct{}
type ctxKeyActorID struct{}

// GetRequestID returns the request id from context if set.
func GetRequestID(ctx context.Context) (string, bool) {
	if s, ok := ctx.Value(ctxKeyRequestID{}).(string); ok && s != "" {
		return s, true
	}
	return "", false
}

// GetActorID returns the actor id from context if set.
func GetActorID(ctx context.Context) (string, bool) {
	if s, ok := ctx.Value(ctxKeyActorID{}).(string); ok && s != "" {
		return s, true
	}
	return "", false
}

// RequestID tags every request with an id and echoes it back in the
// X-Request-ID response header. An inbound X-Request-ID is honored only when
// trustHeader is set, so an untrusted edge cannot forge correlation ids.
func RequestID(trustHeader bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var rid string
			if trustHeader {
				rid = r.Header.Get("X-Request-ID")
			}
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)
			ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Actor copies the X-Actor-Id header into the request context. A missing
// header leaves the context untouched and downstream records an empty actor.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get("X-Actor-Id"); actor != "" {
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyActorID{}, actor))
		}
		next.ServeHTTP(w, r)
	})
}
