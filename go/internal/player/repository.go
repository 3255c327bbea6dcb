package player

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/db"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/sqlutil"
)

// Querier is the subset of db.Queries the player repository runs
type Querier interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (db.Player, error)
	GetPlayerByAuthID(ctx context.Context, authID string) (db.Player, error)
	CreatePlayer(ctx context.Context, arg db.CreatePlayerParams) (int64, error)
	GetPlayerStats(ctx context.Context, playerID uuid.UUID) (db.GetPlayerStatsRow, error)
}

// Repository handles all player-related database operations
type Repository struct {
	queries Querier
}

// NewRepository creates a new player repository
func NewRepository(queries Querier) *Repository {
	return &Repository{queries: queries}
}

// CreatePlayerRequest contains all data needed to create a player
type CreatePlayerRequest struct {
	AuthID    string
	Name      string
	CreatedAt time.Time
}

// CreatePlayer inserts a player for the auth id unless one exists, then returns
// whichever row is stored.
func (r *Repository) CreatePlayer(ctx context.Context, req CreatePlayerRequest) (*models.Player, error) {
	_, err := r.queries.CreatePlayer(ctx, db.CreatePlayerParams{
		ID:          uuid.New(),
		AuthID:      req.AuthID,
		Name:        req.Name,
		CreatedAtMs: sqlutil.ToMillis(req.CreatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return r.GetPlayerByAuthID(ctx, req.AuthID)
}

// GetPlayer retrieves a player by ID
func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	row, err := r.queries.GetPlayer(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return r.dbPlayerToModel(row), nil
}

// GetPlayerByAuthID retrieves the player owned by an auth id
func (r *Repository) GetPlayerByAuthID(ctx context.Context, authID string) (*models.Player, error) {
	row, err := r.queries.GetPlayerByAuthID(ctx, authID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player by auth id: %w", err)
	}
	return r.dbPlayerToModel(row), nil
}

// GetPlayerStats aggregates a player's scored participations
func (r *Repository) GetPlayerStats(ctx context.Context, playerID uuid.UUID) (*models.PlayerStats, error) {
	row, err := r.queries.GetPlayerStats(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}
	return &models.PlayerStats{
		PlayerID:     playerID,
		AvgWPM:       row.AvgWpm,
		AvgAccuracy:  row.AvgAccuracy,
		RoundsPlayed: int(row.RoundsPlayed),
	}, nil
}

func (r *Repository) dbPlayerToModel(p db.Player) *models.Player {
	return &models.Player{
		ID:        p.ID,
		AuthID:    p.AuthID,
		Name:      p.Name,
		CreatedAt: sqlutil.FromMillis(p.CreatedAtMs),
	}
}
