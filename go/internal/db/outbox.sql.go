package db

import (
	"context"

	"github.com/google/uuid"
)

const outboxColumns = `id, round_id, event_type, payload, created_at_ms, sent_at_ms`

func scanRoundOutbox(row interface{ Scan(...interface{}) error }) (RoundOutbox, error) {
	var i RoundOutbox
	err := row.Scan(
		&i.ID,
		&i.RoundID,
		&i.EventType,
		&i.Payload,
		&i.CreatedAtMs,
		&i.SentAtMs,
	)
	return i, err
}

const insertRoundOutbox = `
INSERT INTO round_outbox (id, round_id, event_type, payload, created_at_ms)
VALUES ($1, $2, $3, $4, $5)
`

type InsertRoundOutboxParams struct {
	ID          uuid.UUID
	RoundID     uuid.UUID
	EventType   string
	Payload     string
	CreatedAtMs int64
}

func (q *Queries) InsertRoundOutbox(ctx context.Context, arg InsertRoundOutboxParams) error {
	_, err := q.exec(ctx, insertRoundOutbox,
		arg.ID,
		arg.RoundID,
		arg.EventType,
		arg.Payload,
		arg.CreatedAtMs,
	)
	return err
}

const fetchOutboxByID = `
SELECT ` + outboxColumns + `
FROM round_outbox
WHERE id = $1
`

func (q *Queries) FetchOutboxByID(ctx context.Context, id uuid.UUID) (RoundOutbox, error) {
	return scanRoundOutbox(q.queryRow(ctx, fetchOutboxByID, id))
}

const fetchUnsentOutbox = `
SELECT ` + outboxColumns + `
FROM round_outbox
WHERE sent_at_ms IS NULL
ORDER BY created_at_ms
LIMIT $1
`

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int32) ([]RoundOutbox, error) {
	rows, err := q.query(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RoundOutbox
	for rows.Next() {
		i, err := scanRoundOutbox(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markOutboxSent = `
UPDATE round_outbox
SET sent_at_ms = $2
WHERE id = $1 AND sent_at_ms IS NULL
`

type MarkOutboxSentParams struct {
	ID       uuid.UUID
	SentAtMs int64
}

func (q *Queries) MarkOutboxSent(ctx context.Context, arg MarkOutboxSentParams) error {
	_, err := q.exec(ctx, markOutboxSent, arg.ID, arg.SentAtMs)
	return err
}

const countUnsentOutbox = `
SELECT COUNT(*)
FROM round_outbox
WHERE sent_at_ms IS NULL
`

func (q *Queries) CountUnsentOutbox(ctx context.Context) (int64, error) {
	var count int64
	err := q.queryRow(ctx, countUnsentOutbox).Scan(&count)
	return count, err
}
