package db

import (
	"context"

	"github.com/google/uuid"
)

const roundColumns = `id, sentence, start_time_ms, duration_seconds, status, ended_at_ms`

func scanRound(row interface{ Scan(...interface{}) error }) (Round, error) {
	var i Round
	err := row.Scan(
		&i.ID,
		&i.Sentence,
		&i.StartTimeMs,
		&i.DurationSeconds,
		&i.Status,
		&i.EndedAtMs,
	)
	return i, err
}

const getActiveRound = `
SELECT ` + roundColumns + `
FROM rounds
WHERE status = 'active'
LIMIT 1
`

func (q *Queries) GetActiveRound(ctx context.Context) (Round, error) {
	return scanRound(q.queryRow(ctx, getActiveRound))
}

const getRound = `
SELECT ` + roundColumns + `
FROM rounds
WHERE id = $1
`

func (q *Queries) GetRound(ctx context.Context, id uuid.UUID) (Round, error) {
	return scanRound(q.queryRow(ctx, getRound, id))
}

const createRound = `
INSERT INTO rounds (id, sentence, start_time_ms, duration_seconds, status)
VALUES ($1, $2, $3, $4, 'active')
RETURNING ` + roundColumns

type CreateRoundParams struct {
	ID              uuid.UUID
	Sentence        string
	StartTimeMs     int64
	DurationSeconds int32
}

func (q *Queries) CreateRound(ctx context.Context, arg CreateRoundParams) (Round, error) {
	return scanRound(q.queryRow(ctx, createRound,
		arg.ID,
		arg.Sentence,
		arg.StartTimeMs,
		arg.DurationSeconds,
	))
}

const endRound = `
UPDATE rounds
SET status = 'ended', ended_at_ms = $2
WHERE id = $1 AND status = 'active'
`

type EndRoundParams struct {
	ID        uuid.UUID
	EndedAtMs int64
}

// EndRound returns the number of rounds transitioned, 0 when already ended.
func (q *Queries) EndRound(ctx context.Context, arg EndRoundParams) (int64, error) {
	result, err := q.exec(ctx, endRound, arg.ID, arg.EndedAtMs)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
