package middleware

import (
	"context"
	"net"
	"net/http"

	mvauth "github.com/mvplatform/mvauth"
)

// Accountability returns middleware that copies the caller's IP, User-Agent,
// and Origin from the request into the context, where the engine picks them
// up for challenge scoping and audit records.
func Accountability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(RequestContext(r)))
	})
}

// RequestContext derives an accountability-carrying context from a request.
func RequestContext(r *http.Request) context.Context {
	ctx := r.Context()

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx = mvauth.WithClientIP(ctx, host)
	ctx = mvauth.WithUserAgent(ctx, r.UserAgent())
	if origin := r.Header.Get("Origin"); origin != "" {
		ctx = mvauth.WithOrigin(ctx, origin)
	}

	return ctx
}
