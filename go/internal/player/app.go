package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/identity"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/rs/zerolog/log"
)

// PlayerRepository defines what the app layer needs from the repository
type PlayerRepository interface {
	CreatePlayer(ctx context.Context, req CreatePlayerRequest) (*models.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	GetPlayerByAuthID(ctx context.Context, authID string) (*models.Player, error)
	GetPlayerStats(ctx context.Context, playerID uuid.UUID) (*models.PlayerStats, error)
}

// NameSource generates display names for new players
type NameSource interface {
	Generate() string
}

// App handles player business logic
type App struct {
	repo  PlayerRepository
	names NameSource
	clock clockwork.Clock
}

// NewApp creates a new player App
func NewApp(repo PlayerRepository, names NameSource, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		names: names,
		clock: clock,
	}
}

// FindOrCreate returns the caller's player, creating it on first use.
func (a *App) FindOrCreate(ctx context.Context) (*models.Player, error) {
	authID, err := identity.RequireAuthID(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := a.repo.GetPlayerByAuthID(ctx, authID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created, err := a.repo.CreatePlayer(ctx, CreatePlayerRequest{
		AuthID:    authID,
		Name:      a.names.Generate(),
		CreatedAt: a.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("player_id", created.ID.String()).
		Str("name", created.Name).
		Msg("player created")

	return created, nil
}

// GetPlayer retrieves a player by ID
func (a *App) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return a.repo.GetPlayer(ctx, id)
}

// GetStats returns lifetime aggregates for an existing player
func (a *App) GetStats(ctx context.Context, playerID uuid.UUID) (*models.PlayerStats, error) {
	if _, err := a.repo.GetPlayer(ctx, playerID); err != nil {
		return nil, err
	}
	stats, err := a.repo.GetPlayerStats(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}
