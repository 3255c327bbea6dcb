package db

import (
	"context"

	"github.com/google/uuid"
)

const roundPlayerColumns = `id, round_id, player_id, progress_text, wpm, accuracy, updated_at_ms`

func scanRoundPlayer(row interface{ Scan(...interface{}) error }) (RoundPlayer, error) {
	var i RoundPlayer
	err := row.Scan(
		&i.ID,
		&i.RoundID,
		&i.PlayerID,
		&i.ProgressText,
		&i.Wpm,
		&i.Accuracy,
		&i.UpdatedAtMs,
	)
	return i, err
}

const joinRound = `
INSERT INTO round_players (id, round_id, player_id, progress_text, wpm, accuracy, updated_at_ms)
VALUES ($1, $2, $3, '', 0, 1, $4)
ON CONFLICT (round_id, player_id) DO NOTHING
`

type JoinRoundParams struct {
	ID          uuid.UUID
	RoundID     uuid.UUID
	PlayerID    uuid.UUID
	UpdatedAtMs int64
}

// JoinRound returns 0 when the player already joined the round.
func (q *Queries) JoinRound(ctx context.Context, arg JoinRoundParams) (int64, error) {
	result, err := q.exec(ctx, joinRound, arg.ID, arg.RoundID, arg.PlayerID, arg.UpdatedAtMs)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getRoundPlayer = `
SELECT ` + roundPlayerColumns + `
FROM round_players
WHERE round_id = $1 AND player_id = $2
`

type GetRoundPlayerParams struct {
	RoundID  uuid.UUID
	PlayerID uuid.UUID
}

func (q *Queries) GetRoundPlayer(ctx context.Context, arg GetRoundPlayerParams) (RoundPlayer, error) {
	return scanRoundPlayer(q.queryRow(ctx, getRoundPlayer, arg.RoundID, arg.PlayerID))
}

const updateRoundPlayerProgress = `
UPDATE round_players
SET progress_text = $3, wpm = $4, accuracy = $5, updated_at_ms = $6
WHERE round_id = $1 AND player_id = $2
RETURNING ` + roundPlayerColumns

type UpdateRoundPlayerProgressParams struct {
	RoundID      uuid.UUID
	PlayerID     uuid.UUID
	ProgressText string
	Wpm          float64
	Accuracy     float64
	UpdatedAtMs  int64
}

func (q *Queries) UpdateRoundPlayerProgress(ctx context.Context, arg UpdateRoundPlayerProgressParams) (RoundPlayer, error) {
	return scanRoundPlayer(q.queryRow(ctx, updateRoundPlayerProgress,
		arg.RoundID,
		arg.PlayerID,
		arg.ProgressText,
		arg.Wpm,
		arg.Accuracy,
		arg.UpdatedAtMs,
	))
}

const countRoundParticipantsByAuthID = `
SELECT COUNT(*)
FROM round_players rp
JOIN players p ON p.id = rp.player_id
WHERE rp.round_id = $1 AND p.auth_id = $2
`

type CountRoundParticipantsByAuthIDParams struct {
	RoundID uuid.UUID
	AuthID  string
}

func (q *Queries) CountRoundParticipantsByAuthID(ctx context.Context, arg CountRoundParticipantsByAuthIDParams) (int64, error) {
	var count int64
	err := q.queryRow(ctx, countRoundParticipantsByAuthID, arg.RoundID, arg.AuthID).Scan(&count)
	return count, err
}
