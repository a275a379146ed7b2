package auth

import "context"

type contextKey struct{}

// User is the authenticated caller
type User struct {
	ID    string
	Email string
	Roles []string
}

// WithUser stores the caller in ctx
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the caller stored by WithUser
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(contextKey{}).(User)
	return u, ok
}
