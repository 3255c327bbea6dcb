package identity

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// NewAuthInterceptor verifies the bearer token when one is present and puts the
// auth id in the context. Requests without a token pass through; operations
// that need an identity reject them with ErrUnauthenticated.
func NewAuthInterceptor(issuer *Issuer) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				return next(ctx, req)
			}

			header := req.Header().Get(authorizationHeader)
			if header == "" {
				return next(ctx, req)
			}

			token, ok := strings.CutPrefix(header, bearerPrefix)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, ErrInvalidToken)
			}
			authID, err := issuer.Verify(strings.TrimSpace(token))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(WithAuthID(ctx, authID), req)
		}
	}
}

// NewTokenInterceptor attaches the current token to outgoing requests.
func NewTokenInterceptor(token func() string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				if t := token(); t != "" {
					req.Header().Set(authorizationHeader, bearerPrefix+t)
				}
			}
			return next(ctx, req)
		}
	}
}
