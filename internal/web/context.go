package web

import (
	"context"

	"github.com/centralrepo/centralrepo/internal/model"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// withUser stores the authenticated user on the request context.
func withUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFrom returns the authenticated user, or nil outside the auth
// middleware.
func UserFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(userContextKey).(*model.User)
	return u
}
