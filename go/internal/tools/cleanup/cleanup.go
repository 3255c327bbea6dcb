package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/mcdev12/typerace/go/internal/db"
	"github.com/mcdev12/typerace/go/internal/dbconfig"
	"github.com/mcdev12/typerace/go/internal/events"
)

// Ends every active round and makes sure the single-active-round index exists.
// Run against Postgres when rounds were left active by a crashed deployment or
// a database created before the index.
func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	conn := stdlib.OpenDBFromPool(pool)
	defer conn.Close()

	ended, err := cleanup(ctx, conn, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "end active rounds: %v\n", err)
		os.Exit(1)
	}
	for _, id := range ended {
		fmt.Printf("ended round %s\n", id)
	}
	fmt.Printf("%d active round(s) ended\n", len(ended))

	// only succeeds once at most one round is active
	if _, err := conn.ExecContext(ctx, `
            CREATE UNIQUE INDEX IF NOT EXISTS unique_active_round
            ON rounds (status) WHERE status = 'active'
        `); err != nil {
		fmt.Fprintf(os.Stderr, "ensure index: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("unique_active_round index present")
}

// cleanup ends the active rounds in one transaction.
func cleanup(ctx context.Context, conn *sql.DB, now time.Time) ([]uuid.UUID, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ended, err := endActiveRounds(ctx, tx, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ended, nil
}

// endActiveRounds ends each active round and queues a RoundEnded outbox row
// for it so running servers relay the end to their clients.
func endActiveRounds(ctx context.Context, tx db.DBTX, now time.Time) ([]uuid.UUID, error) {
	rows, err := tx.QueryContext(ctx, `
            UPDATE rounds
            SET status = 'ended', ended_at_ms = $1
            WHERE status = 'active'
            RETURNING id
        `, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("update rounds: %w", err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan ended round: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect ended rounds: %w", err)
	}

	for _, id := range ids {
		evt, err := events.NewRoundEvent(id, events.EventTypeRoundEnded, now, events.RoundEndedPayload{
			RoundID: id.String(),
			EndedAt: now,
		})
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			return nil, fmt.Errorf("marshal event: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
                INSERT INTO round_outbox (id, round_id, event_type, payload, created_at_ms)
                VALUES ($1, $2, $3, $4, $5)
            `, evt.ID, id, string(evt.Type), string(payload), now.UnixMilli()); err != nil {
			return nil, fmt.Errorf("insert outbox for %s: %w", id, err)
		}
	}
	return ids, nil
}
