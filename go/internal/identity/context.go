package identity

import "context"

type ctxKey string

const authIDKey ctxKey = "authID"

// WithAuthID returns a context carrying the verified caller identity.
func WithAuthID(ctx context.Context, authID string) context.Context {
	return context.WithValue(ctx, authIDKey, authID)
}

// AuthIDFromContext returns the caller identity, or false when the request was anonymous.
func AuthIDFromContext(ctx context.Context) (string, bool) {
	authID, ok := ctx.Value(authIDKey).(string)
	return authID, ok && authID != ""
}

// RequireAuthID is AuthIDFromContext that fails with ErrUnauthenticated.
func RequireAuthID(ctx context.Context) (string, error) {
	authID, ok := AuthIDFromContext(ctx)
	if !ok {
		return "", ErrUnauthenticated
	}
	return authID, nil
}
