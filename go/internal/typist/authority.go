package typist

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/api"
	"github.com/mcdev12/typerace/go/internal/game"
	"github.com/mcdev12/typerace/go/internal/identity"
	"github.com/mcdev12/typerace/go/internal/models"
)

// Client calls the identity, round and player services.
type Client struct {
	Identity *api.IdentityServiceClient
	rounds   *api.RoundServiceClient
	players  *api.PlayerServiceClient
}

var _ game.Authority = (*Client)(nil)

// NewClient builds service clients that attach token() to every call.
func NewClient(httpClient connect.HTTPClient, baseURL string, token func() string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	auth := connect.WithInterceptors(identity.NewTokenInterceptor(token))
	return &Client{
		Identity: api.NewIdentityServiceClient(httpClient, baseURL),
		rounds:   api.NewRoundServiceClient(httpClient, baseURL, auth),
		players:  api.NewPlayerServiceClient(httpClient, baseURL, auth),
	}
}

func (c *Client) GetActiveRound(ctx context.Context) (*models.Round, error) {
	resp, err := c.rounds.GetActiveRound(ctx, connect.NewRequest(&api.GetActiveRoundRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Round.ToModel()
}

func (c *Client) JoinRound(ctx context.Context, roundID, playerID uuid.UUID) (*models.Participation, error) {
	resp, err := c.rounds.JoinRound(ctx, connect.NewRequest(&api.JoinRoundRequest{
		RoundID:  roundID.String(),
		PlayerID: playerID.String(),
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Participation.ToModel()
}

// SaveProgress returns nil without error when the player never joined.
func (c *Client) SaveProgress(ctx context.Context, update models.ProgressUpdate) (*models.Participation, error) {
	resp, err := c.rounds.SaveProgress(ctx, connect.NewRequest(&api.SaveProgressRequest{
		RoundID:      update.RoundID.String(),
		PlayerID:     update.PlayerID.String(),
		ProgressText: update.ProgressText,
		WPM:          update.WPM,
		Accuracy:     update.Accuracy,
	}))
	if err != nil {
		return nil, err
	}
	if resp.Msg.Participation == nil {
		return nil, nil
	}
	return resp.Msg.Participation.ToModel()
}

func (c *Client) EndRound(ctx context.Context, roundID uuid.UUID) error {
	_, err := c.rounds.EndRound(ctx, connect.NewRequest(&api.EndRoundRequest{RoundID: roundID.String()}))
	return err
}

func (c *Client) FindOrCreatePlayer(ctx context.Context) (*models.Player, error) {
	resp, err := c.players.FindOrCreatePlayer(ctx, connect.NewRequest(&api.FindOrCreatePlayerRequest{}))
	if err != nil {
		return nil, fmt.Errorf("failed to find or create player: %w", err)
	}
	return resp.Msg.Player.ToModel()
}

func (c *Client) GetPlayerStats(ctx context.Context, playerID uuid.UUID) (*models.PlayerStats, error) {
	resp, err := c.players.GetPlayerStats(ctx, connect.NewRequest(&api.GetPlayerStatsRequest{PlayerID: playerID.String()}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Stats.ToModel()
}
