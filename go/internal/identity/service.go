package identity

import (
	"context"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/api"
	"github.com/rs/zerolog/log"
)

// Service implements the IdentityService connect interface
type Service struct {
	issuer *Issuer
}

func NewService(issuer *Issuer) *Service {
	return &Service{issuer: issuer}
}

var _ api.IdentityServiceHandler = (*Service)(nil)

// SignInAnonymously mints a fresh auth id and a token for it.
func (s *Service) SignInAnonymously(ctx context.Context, req *connect.Request[api.SignInAnonymouslyRequest]) (*connect.Response[api.SignInAnonymouslyResponse], error) {
	authID := uuid.NewString()
	token, expiresAt, err := s.issuer.Issue(authID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	log.Debug().Str("auth_id", authID).Msg("issued anonymous identity")

	return connect.NewResponse(&api.SignInAnonymouslyResponse{
		Token:     token,
		AuthID:    authID,
		ExpiresAt: expiresAt,
	}), nil
}
