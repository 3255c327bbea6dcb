package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const whoAmIProcedure = "/typerace.test.v1.TestService/WhoAmI"

type whoAmIResponse struct {
	AuthID string `json:"authId"`
}

func newWhoAmIServer(t *testing.T, issuer *Issuer) *httptest.Server {
	t.Helper()

	handler := connect.NewUnaryHandler(whoAmIProcedure,
		func(ctx context.Context, _ *connect.Request[api.GetActiveRoundRequest]) (*connect.Response[whoAmIResponse], error) {
			authID, err := RequireAuthID(ctx)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return connect.NewResponse(&whoAmIResponse{AuthID: authID}), nil
		},
		connect.WithCodec(api.Codec{}),
		connect.WithInterceptors(NewAuthInterceptor(issuer)),
	)

	mux := http.NewServeMux()
	mux.Handle(whoAmIProcedure, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func callWhoAmI(t *testing.T, srv *httptest.Server, token string) (string, error) {
	t.Helper()

	client := connect.NewClient[api.GetActiveRoundRequest, whoAmIResponse](
		srv.Client(),
		srv.URL+whoAmIProcedure,
		connect.WithCodec(api.Codec{}),
		connect.WithInterceptors(NewTokenInterceptor(func() string { return token })),
	)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&api.GetActiveRoundRequest{}))
	if err != nil {
		return "", err
	}
	return resp.Msg.AuthID, nil
}

func TestAuthInterceptor(t *testing.T) {
	issuer := NewIssuer([]byte("secret"), time.Hour, clockwork.NewRealClock())
	srv := newWhoAmIServer(t, issuer)

	t.Run("valid token", func(t *testing.T) {
		token, _, err := issuer.Issue("auth-42")
		require.NoError(t, err)

		authID, err := callWhoAmI(t, srv, token)
		require.NoError(t, err)
		assert.Equal(t, "auth-42", authID)
	})

	t.Run("missing token reaches handler", func(t *testing.T) {
		_, err := callWhoAmI(t, srv, "")
		require.Error(t, err)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		_, err := callWhoAmI(t, srv, "garbage")
		require.Error(t, err)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

		var connectErr *connect.Error
		require.True(t, errors.As(err, &connectErr))
	})
}

func TestSignInAnonymously(t *testing.T) {
	issuer := NewIssuer([]byte("secret"), time.Hour, clockwork.NewRealClock())

	mux := http.NewServeMux()
	mux.Handle(api.NewIdentityServiceHandler(NewService(issuer)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := api.NewIdentityServiceClient(srv.Client(), srv.URL)
	resp, err := client.SignInAnonymously(context.Background(), connect.NewRequest(&api.SignInAnonymouslyRequest{}))
	require.NoError(t, err)

	authID, err := issuer.Verify(resp.Msg.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.Msg.AuthID, authID)
	assert.True(t, resp.Msg.ExpiresAt.After(time.Now()))
}
