package player

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/api"
	"github.com/mcdev12/typerace/go/internal/identity"
	"github.com/mcdev12/typerace/go/internal/models"
)

// PlayerApp defines what the service layer needs from the player application
type PlayerApp interface {
	FindOrCreate(ctx context.Context) (*models.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	GetStats(ctx context.Context, playerID uuid.UUID) (*models.PlayerStats, error)
}

// Service implements the PlayerService connect interface
type Service struct {
	app PlayerApp
}

// NewService creates a new player service
func NewService(app PlayerApp) *Service {
	return &Service{app: app}
}

// Verify that Service implements the PlayerServiceHandler interface
var _ api.PlayerServiceHandler = (*Service)(nil)

// FindOrCreatePlayer returns the caller's player record
func (s *Service) FindOrCreatePlayer(ctx context.Context, req *connect.Request[api.FindOrCreatePlayerRequest]) (*connect.Response[api.FindOrCreatePlayerResponse], error) {
	player, err := s.app.FindOrCreate(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.FindOrCreatePlayerResponse{
		Player: api.PlayerFromModel(player),
	}), nil
}

// GetPlayer retrieves a player by ID
func (s *Service) GetPlayer(ctx context.Context, req *connect.Request[api.GetPlayerRequest]) (*connect.Response[api.GetPlayerResponse], error) {
	id, err := uuid.Parse(req.Msg.PlayerID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	player, err := s.app.GetPlayer(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetPlayerResponse{
		Player: api.PlayerFromModel(player),
	}), nil
}

// GetPlayerStats returns lifetime averages for a player
func (s *Service) GetPlayerStats(ctx context.Context, req *connect.Request[api.GetPlayerStatsRequest]) (*connect.Response[api.GetPlayerStatsResponse], error) {
	id, err := uuid.Parse(req.Msg.PlayerID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	stats, err := s.app.GetStats(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetPlayerStatsResponse{
		Stats: api.StatsFromModel(stats),
	}), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
