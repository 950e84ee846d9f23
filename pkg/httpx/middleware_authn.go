package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// BearerResolver looks up an opaque bearer token. It returns a context
// carrying the resolved principal and ok=true, ok=false for unknown or
// expired tokens, or an error when the lookup itself failed.
type BearerResolver func(ctx context.Context, token string) (context.Context, bool, error)

// AuthnMiddleware rejects requests without a valid bearer token.
func AuthnMiddleware(resolve BearerResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			authedCtx, ok, err := resolve(ctx, raw)
			if err != nil {
				log.Error("bearer token lookup failed", slog.Any("error", err))
				WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
				return
			}
			if !ok {
				writeBearerError(w, "the access token is invalid or expired")
				return
			}

			next.ServeHTTP(w, r.WithContext(authedCtx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return raw, raw != ""
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
