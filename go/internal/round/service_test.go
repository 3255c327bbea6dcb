package round

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/api"
	"github.com/mcdev12/typerace/go/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, f *fixture) (*identity.Issuer, func(token string) *api.RoundServiceClient) {
	t.Helper()

	issuer := identity.NewIssuer([]byte("secret"), time.Hour, clockwork.NewRealClock())
	interceptors := connect.WithInterceptors(identity.NewAuthInterceptor(issuer))

	mux := http.NewServeMux()
	mux.Handle(api.NewRoundServiceHandler(NewService(f.app), interceptors))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return issuer, func(token string) *api.RoundServiceClient {
		opts := connect.WithInterceptors(identity.NewTokenInterceptor(func() string { return token }))
		return api.NewRoundServiceClient(srv.Client(), srv.URL, opts)
	}
}

func TestService_ErrorCodes(t *testing.T) {
	f := newFixture(t)
	issuer, clientFor := newTestServer(t, f)
	ctx := context.Background()

	authCtx, p := f.newPlayer(t)
	authID, _ := identity.AuthIDFromContext(authCtx)
	token, _, err := issuer.Issue(authID)
	require.NoError(t, err)

	owner := clientFor(token)
	anonymous := clientFor("")

	active, err := anonymous.GetActiveRound(ctx, connect.NewRequest(&api.GetActiveRoundRequest{}))
	require.NoError(t, err)
	roundID := active.Msg.Round.ID
	assert.Equal(t, 60, active.Msg.Round.Duration)

	_, err = anonymous.JoinRound(ctx, connect.NewRequest(&api.JoinRoundRequest{RoundID: roundID, PlayerID: p.ID.String()}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = owner.JoinRound(ctx, connect.NewRequest(&api.JoinRoundRequest{RoundID: "nope", PlayerID: p.ID.String()}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = owner.EndRound(ctx, connect.NewRequest(&api.EndRoundRequest{RoundID: roundID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = owner.JoinRound(ctx, connect.NewRequest(&api.JoinRoundRequest{RoundID: uuid.NewString(), PlayerID: p.ID.String()}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	joined, err := owner.JoinRound(ctx, connect.NewRequest(&api.JoinRoundRequest{RoundID: roundID, PlayerID: p.ID.String()}))
	require.NoError(t, err)
	assert.Equal(t, roundID, joined.Msg.Participation.RoundID)

	_, err = owner.SaveProgress(ctx, connect.NewRequest(&api.SaveProgressRequest{
		RoundID: roundID, PlayerID: p.ID.String(), ProgressText: "x", WPM: 10, Accuracy: 2,
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	saved, err := owner.SaveProgress(ctx, connect.NewRequest(&api.SaveProgressRequest{
		RoundID: roundID, PlayerID: p.ID.String(), ProgressText: "x", WPM: 10, Accuracy: 1,
	}))
	require.NoError(t, err)
	require.NotNil(t, saved.Msg.Participation)

	ended, err := owner.EndRound(ctx, connect.NewRequest(&api.EndRoundRequest{RoundID: roundID}))
	require.NoError(t, err)
	assert.True(t, ended.Msg.Ended)
}
