package http

import (
	"context"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

type ctxKey struct{}

func withUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// userFromContext returns the user resolved by the bearer middleware.
func userFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*domain.User)
	return u, ok && u != nil
}
