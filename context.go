package mvauth

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type originContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for challenge scoping, session binding, and audit records. Challenges
// issued without an IP are scoped under the "system" sentinel.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. It is stored on
// the session created at login.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithOrigin attaches the request origin to ctx for session and audit
// records.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originContextKey{}, origin)
}

func accountabilityFromContext(ctx context.Context) Accountability {
	if ctx == nil {
		return Accountability{}
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	origin, _ := ctx.Value(originContextKey{}).(string)

	return Accountability{
		IP:        ip,
		UserAgent: userAgent,
		Origin:    origin,
	}
}
