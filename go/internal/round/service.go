package round

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/api"
	"github.com/mcdev12/typerace/go/internal/identity"
	"github.com/mcdev12/typerace/go/internal/models"
)

// RoundApp defines what the service layer needs from the round authority
type RoundApp interface {
	GetOrCreateActive(ctx context.Context) (*models.Round, error)
	End(ctx context.Context, roundID uuid.UUID) error
	Join(ctx context.Context, roundID, playerID uuid.UUID) (*models.Participation, error)
	SaveProgress(ctx context.Context, update models.ProgressUpdate) (*models.Participation, error)
}

// Service implements the RoundService connect interface
type Service struct {
	app RoundApp
}

// NewService creates a new round service
func NewService(app RoundApp) *Service {
	return &Service{app: app}
}

// Verify that Service implements the RoundServiceHandler interface
var _ api.RoundServiceHandler = (*Service)(nil)

func (s *Service) GetActiveRound(ctx context.Context, req *connect.Request[api.GetActiveRoundRequest]) (*connect.Response[api.GetActiveRoundResponse], error) {
	r, err := s.app.GetOrCreateActive(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetActiveRoundResponse{
		Round: api.RoundFromModel(r),
	}), nil
}

func (s *Service) JoinRound(ctx context.Context, req *connect.Request[api.JoinRoundRequest]) (*connect.Response[api.JoinRoundResponse], error) {
	roundID, playerID, err := parseIDs(req.Msg.RoundID, req.Msg.PlayerID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	participation, err := s.app.Join(ctx, roundID, playerID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.JoinRoundResponse{
		Participation: api.ParticipationFromModel(participation),
	}), nil
}

func (s *Service) SaveProgress(ctx context.Context, req *connect.Request[api.SaveProgressRequest]) (*connect.Response[api.SaveProgressResponse], error) {
	roundID, playerID, err := parseIDs(req.Msg.RoundID, req.Msg.PlayerID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	participation, err := s.app.SaveProgress(ctx, models.ProgressUpdate{
		RoundID:      roundID,
		PlayerID:     playerID,
		ProgressText: req.Msg.ProgressText,
		WPM:          req.Msg.WPM,
		Accuracy:     req.Msg.Accuracy,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.SaveProgressResponse{
		Participation: api.ParticipationFromModel(participation),
	}), nil
}

func (s *Service) EndRound(ctx context.Context, req *connect.Request[api.EndRoundRequest]) (*connect.Response[api.EndRoundResponse], error) {
	roundID, err := uuid.Parse(req.Msg.RoundID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.app.End(ctx, roundID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.EndRoundResponse{Ended: true}), nil
}

func parseIDs(roundID, playerID string) (uuid.UUID, uuid.UUID, error) {
	r, err := uuid.Parse(roundID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	p, err := uuid.Parse(playerID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return r, p, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, ErrForbidden):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, ErrInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
