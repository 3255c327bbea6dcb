package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const PlayerServiceName = "typerace.player.v1.PlayerService"

const (
	PlayerServiceFindOrCreatePlayerProcedure = "/typerace.player.v1.PlayerService/FindOrCreatePlayer"
	PlayerServiceGetPlayerProcedure          = "/typerace.player.v1.PlayerService/GetPlayer"
	PlayerServiceGetPlayerStatsProcedure     = "/typerace.player.v1.PlayerService/GetPlayerStats"
)

type FindOrCreatePlayerRequest struct{}

type FindOrCreatePlayerResponse struct {
	Player *Player `json:"player"`
}

type GetPlayerRequest struct {
	PlayerID string `json:"playerId"`
}

type GetPlayerResponse struct {
	Player *Player `json:"player"`
}

type GetPlayerStatsRequest struct {
	PlayerID string `json:"playerId"`
}

type GetPlayerStatsResponse struct {
	Stats *PlayerStats `json:"stats"`
}

type PlayerServiceHandler interface {
	FindOrCreatePlayer(context.Context, *connect.Request[FindOrCreatePlayerRequest]) (*connect.Response[FindOrCreatePlayerResponse], error)
	GetPlayer(context.Context, *connect.Request[GetPlayerRequest]) (*connect.Response[GetPlayerResponse], error)
	GetPlayerStats(context.Context, *connect.Request[GetPlayerStatsRequest]) (*connect.Response[GetPlayerStatsResponse], error)
}

func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	findOrCreate := connect.NewUnaryHandler(PlayerServiceFindOrCreatePlayerProcedure, svc.FindOrCreatePlayer, opts...)
	getPlayer := connect.NewUnaryHandler(PlayerServiceGetPlayerProcedure, svc.GetPlayer, opts...)
	getStats := connect.NewUnaryHandler(PlayerServiceGetPlayerStatsProcedure, svc.GetPlayerStats, opts...)

	return "/" + PlayerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PlayerServiceFindOrCreatePlayerProcedure:
			findOrCreate.ServeHTTP(w, r)
		case PlayerServiceGetPlayerProcedure:
			getPlayer.ServeHTTP(w, r)
		case PlayerServiceGetPlayerStatsProcedure:
			getStats.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

type PlayerServiceClient struct {
	findOrCreate *connect.Client[FindOrCreatePlayerRequest, FindOrCreatePlayerResponse]
	getPlayer    *connect.Client[GetPlayerRequest, GetPlayerResponse]
	getStats     *connect.Client[GetPlayerStatsRequest, GetPlayerStatsResponse]
}

func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &PlayerServiceClient{
		findOrCreate: connect.NewClient[FindOrCreatePlayerRequest, FindOrCreatePlayerResponse](httpClient, baseURL+PlayerServiceFindOrCreatePlayerProcedure, opts...),
		getPlayer:    connect.NewClient[GetPlayerRequest, GetPlayerResponse](httpClient, baseURL+PlayerServiceGetPlayerProcedure, opts...),
		getStats:     connect.NewClient[GetPlayerStatsRequest, GetPlayerStatsResponse](httpClient, baseURL+PlayerServiceGetPlayerStatsProcedure, opts...),
	}
}

func (c *PlayerServiceClient) FindOrCreatePlayer(ctx context.Context, req *connect.Request[FindOrCreatePlayerRequest]) (*connect.Response[FindOrCreatePlayerResponse], error) {
	return c.findOrCreate.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) GetPlayer(ctx context.Context, req *connect.Request[GetPlayerRequest]) (*connect.Response[GetPlayerResponse], error) {
	return c.getPlayer.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) GetPlayerStats(ctx context.Context, req *connect.Request[GetPlayerStatsRequest]) (*connect.Response[GetPlayerStatsResponse], error) {
	return c.getStats.CallUnary(ctx, req)
}
