package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
)

const IdentityServiceName = "typerace.identity.v1.IdentityService"

const IdentityServiceSignInAnonymouslyProcedure = "/typerace.identity.v1.IdentityService/SignInAnonymously"

type SignInAnonymouslyRequest struct{}

type SignInAnonymouslyResponse struct {
	Token     string    `json:"token"`
	AuthID    string    `json:"authId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type IdentityServiceHandler interface {
	SignInAnonymously(context.Context, *connect.Request[SignInAnonymouslyRequest]) (*connect.Response[SignInAnonymouslyResponse], error)
}

func NewIdentityServiceHandler(svc IdentityServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	signIn := connect.NewUnaryHandler(IdentityServiceSignInAnonymouslyProcedure, svc.SignInAnonymously, opts...)

	return "/" + IdentityServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case IdentityServiceSignInAnonymouslyProcedure:
			signIn.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

type IdentityServiceClient struct {
	signIn *connect.Client[SignInAnonymouslyRequest, SignInAnonymouslyResponse]
}

func NewIdentityServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *IdentityServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &IdentityServiceClient{
		signIn: connect.NewClient[SignInAnonymouslyRequest, SignInAnonymouslyResponse](httpClient, baseURL+IdentityServiceSignInAnonymouslyProcedure, clientOptions(opts)...),
	}
}

func (c *IdentityServiceClient) SignInAnonymously(ctx context.Context, req *connect.Request[SignInAnonymouslyRequest]) (*connect.Response[SignInAnonymouslyResponse], error) {
	return c.signIn.CallUnary(ctx, req)
}
