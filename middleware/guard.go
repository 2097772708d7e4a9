package middleware

import (
	"context"
	"net/http"
	"strings"

	mvauth "github.com/mvplatform/mvauth"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the validated access-token claims injected by
// [Guard].
func ClaimsFromContext(ctx context.Context) (mvauth.Payload, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(mvauth.Payload)
	return claims, ok
}

// Guard returns middleware that rejects requests without a valid bearer
// access token. Validated claims are injected into the request context.
func Guard(engine *mvauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
