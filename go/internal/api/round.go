package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const RoundServiceName = "typerace.round.v1.RoundService"

const (
	RoundServiceGetActiveRoundProcedure = "/typerace.round.v1.RoundService/GetActiveRound"
	RoundServiceJoinRoundProcedure      = "/typerace.round.v1.RoundService/JoinRound"
	RoundServiceSaveProgressProcedure   = "/typerace.round.v1.RoundService/SaveProgress"
	RoundServiceEndRoundProcedure       = "/typerace.round.v1.RoundService/EndRound"
)

type GetActiveRoundRequest struct{}

type GetActiveRoundResponse struct {
	Round *Round `json:"round"`
}

type JoinRoundRequest struct {
	RoundID  string `json:"roundId"`
	PlayerID string `json:"playerId"`
}

type JoinRoundResponse struct {
	Participation *Participation `json:"participation"`
}

type SaveProgressRequest struct {
	RoundID      string  `json:"roundId"`
	PlayerID     string  `json:"playerId"`
	ProgressText string  `json:"progressText"`
	WPM          float64 `json:"wpm"`
	Accuracy     float64 `json:"accuracy"`
}

// SaveProgressResponse carries no participation when the player never joined
// the round.
type SaveProgressResponse struct {
	Participation *Participation `json:"participation,omitempty"`
}

type EndRoundRequest struct {
	RoundID string `json:"roundId"`
}

type EndRoundResponse struct {
	Ended bool `json:"ended"`
}

type RoundServiceHandler interface {
	GetActiveRound(context.Context, *connect.Request[GetActiveRoundRequest]) (*connect.Response[GetActiveRoundResponse], error)
	JoinRound(context.Context, *connect.Request[JoinRoundRequest]) (*connect.Response[JoinRoundResponse], error)
	SaveProgress(context.Context, *connect.Request[SaveProgressRequest]) (*connect.Response[SaveProgressResponse], error)
	EndRound(context.Context, *connect.Request[EndRoundRequest]) (*connect.Response[EndRoundResponse], error)
}

// NewRoundServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewRoundServiceHandler(svc RoundServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	getActiveRound := connect.NewUnaryHandler(RoundServiceGetActiveRoundProcedure, svc.GetActiveRound, opts...)
	joinRound := connect.NewUnaryHandler(RoundServiceJoinRoundProcedure, svc.JoinRound, opts...)
	saveProgress := connect.NewUnaryHandler(RoundServiceSaveProgressProcedure, svc.SaveProgress, opts...)
	endRound := connect.NewUnaryHandler(RoundServiceEndRoundProcedure, svc.EndRound, opts...)

	return "/" + RoundServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case RoundServiceGetActiveRoundProcedure:
			getActiveRound.ServeHTTP(w, r)
		case RoundServiceJoinRoundProcedure:
			joinRound.ServeHTTP(w, r)
		case RoundServiceSaveProgressProcedure:
			saveProgress.ServeHTTP(w, r)
		case RoundServiceEndRoundProcedure:
			endRound.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

type RoundServiceClient struct {
	getActiveRound *connect.Client[GetActiveRoundRequest, GetActiveRoundResponse]
	joinRound      *connect.Client[JoinRoundRequest, JoinRoundResponse]
	saveProgress   *connect.Client[SaveProgressRequest, SaveProgressResponse]
	endRound       *connect.Client[EndRoundRequest, EndRoundResponse]
}

func NewRoundServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *RoundServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &RoundServiceClient{
		getActiveRound: connect.NewClient[GetActiveRoundRequest, GetActiveRoundResponse](httpClient, baseURL+RoundServiceGetActiveRoundProcedure, opts...),
		joinRound:      connect.NewClient[JoinRoundRequest, JoinRoundResponse](httpClient, baseURL+RoundServiceJoinRoundProcedure, opts...),
		saveProgress:   connect.NewClient[SaveProgressRequest, SaveProgressResponse](httpClient, baseURL+RoundServiceSaveProgressProcedure, opts...),
		endRound:       connect.NewClient[EndRoundRequest, EndRoundResponse](httpClient, baseURL+RoundServiceEndRoundProcedure, opts...),
	}
}

func (c *RoundServiceClient) GetActiveRound(ctx context.Context, req *connect.Request[GetActiveRoundRequest]) (*connect.Response[GetActiveRoundResponse], error) {
	return c.getActiveRound.CallUnary(ctx, req)
}

func (c *RoundServiceClient) JoinRound(ctx context.Context, req *connect.Request[JoinRoundRequest]) (*connect.Response[JoinRoundResponse], error) {
	return c.joinRound.CallUnary(ctx, req)
}

func (c *RoundServiceClient) SaveProgress(ctx context.Context, req *connect.Request[SaveProgressRequest]) (*connect.Response[SaveProgressResponse], error) {
	return c.saveProgress.CallUnary(ctx, req)
}

func (c *RoundServiceClient) EndRound(ctx context.Context, req *connect.Request[EndRoundRequest]) (*connect.Response[EndRoundResponse], error) {
	return c.endRound.CallUnary(ctx, req)
}
