package typist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/api"
	"github.com/mcdev12/typerace/go/internal/dbtest"
	"github.com/mcdev12/typerace/go/internal/gateway"
	"github.com/mcdev12/typerace/go/internal/identity"
	"github.com/mcdev12/typerace/go/internal/player"
	"github.com/mcdev12/typerace/go/internal/round"
	"github.com/mcdev12/typerace/go/internal/sentences"
	"github.com/stretchr/testify/require"
)

// stack is a complete in-process server backed by a temporary SQLite file.
type stack struct {
	server  *httptest.Server
	gateway *gateway.Service
}

func newStack(t *testing.T) *stack {
	t.Helper()

	conn, queries := dbtest.OpenSQLite(t)
	clock := clockwork.NewRealClock()
	issuer := identity.NewIssuer([]byte("test-secret"), time.Hour, clock)

	players := player.NewApp(player.NewRepository(queries), player.NewNameGenerator(7), clock)
	rounds := round.NewApp(
		round.NewRepository(queries, conn),
		players,
		sentences.NewPicker(sentences.Defaults(), 7),
		clock,
		round.DefaultDuration,
	)

	interceptors := connect.WithInterceptors(identity.NewAuthInterceptor(issuer))
	mux := http.NewServeMux()
	mux.Handle(api.NewIdentityServiceHandler(identity.NewService(issuer), interceptors))
	mux.Handle(api.NewPlayerServiceHandler(player.NewService(players), interceptors))
	mux.Handle(api.NewRoundServiceHandler(round.NewService(rounds), interceptors))

	gw := gateway.NewService(gateway.DefaultConfig(), issuer, rounds, gateway.NewLocalProgressBus(64))
	gw.RegisterRoutes(mux)

	ctx, cancel := context.WithCancel(context.Background())
	go gw.Start(ctx)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &stack{server: server, gateway: gw}
}

func (s *stack) wsURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
}

// signedIn returns a client with a fresh anonymous identity.
func (s *stack) signedIn(t *testing.T) (*Client, *TokenStore) {
	t.Helper()
	store := NewTokenStore(t.TempDir())
	client := NewClient(s.server.Client(), s.server.URL, store.Token)
	_, err := store.SignIn(context.Background(), client.Identity, time.Now())
	require.NoError(t, err)
	return client, store
}
