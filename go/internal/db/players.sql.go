package db

import (
	"context"

	"github.com/google/uuid"
)

const playerColumns = `id, auth_id, name, created_at_ms`

func scanPlayer(row interface{ Scan(...interface{}) error }) (Player, error) {
	var i Player
	err := row.Scan(&i.ID, &i.AuthID, &i.Name, &i.CreatedAtMs)
	return i, err
}

const getPlayer = `
SELECT ` + playerColumns + `
FROM players
WHERE id = $1
`

func (q *Queries) GetPlayer(ctx context.Context, id uuid.UUID) (Player, error) {
	return scanPlayer(q.queryRow(ctx, getPlayer, id))
}

const getPlayerByAuthID = `
SELECT ` + playerColumns + `
FROM players
WHERE auth_id = $1
`

func (q *Queries) GetPlayerByAuthID(ctx context.Context, authID string) (Player, error) {
	return scanPlayer(q.queryRow(ctx, getPlayerByAuthID, authID))
}

const createPlayer = `
INSERT INTO players (id, auth_id, name, created_at_ms)
VALUES ($1, $2, $3, $4)
ON CONFLICT (auth_id) DO NOTHING
`

type CreatePlayerParams struct {
	ID          uuid.UUID
	AuthID      string
	Name        string
	CreatedAtMs int64
}

// CreatePlayer returns 0 when a player already exists for the auth id.
func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) (int64, error) {
	result, err := q.exec(ctx, createPlayer, arg.ID, arg.AuthID, arg.Name, arg.CreatedAtMs)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getPlayerStats = `
SELECT
    COALESCE(AVG(rp.wpm), 0),
    COALESCE(AVG(rp.accuracy), 0),
    COUNT(rp.id)
FROM round_players rp
JOIN rounds r ON r.id = rp.round_id
WHERE rp.player_id = $1
  AND r.status = 'ended'
  AND rp.progress_text <> ''
`

type GetPlayerStatsRow struct {
	AvgWpm       float64
	AvgAccuracy  float64
	RoundsPlayed int64
}

func (q *Queries) GetPlayerStats(ctx context.Context, playerID uuid.UUID) (GetPlayerStatsRow, error) {
	var i GetPlayerStatsRow
	err := q.queryRow(ctx, getPlayerStats, playerID).Scan(&i.AvgWpm, &i.AvgAccuracy, &i.RoundsPlayed)
	return i, err
}
