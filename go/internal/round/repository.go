package round

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/db"
	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/sqlutil"
)

// Repository handles all round-related database operations
type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

// NewRepository creates a new round repository
func NewRepository(queries *db.Queries, database *sql.DB) *Repository {
	return &Repository{
		queries: queries,
		db:      database,
	}
}

// CreateRoundRequest contains all data needed to start a round
type CreateRoundRequest struct {
	Sentence  string
	StartTime time.Time
	Duration  time.Duration
}

func (r *Repository) GetActiveRound(ctx context.Context) (*models.Round, error) {
	row, err := r.queries.GetActiveRound(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active round: %w", err)
	}
	return r.dbRoundToModel(row), nil
}

func (r *Repository) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	row, err := r.queries.GetRound(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return r.dbRoundToModel(row), nil
}

// CreateRound does a dual write to the rounds table and the outbox. A second
// concurrent creation fails on the unique_active_round index and surfaces as
// ErrActiveRoundExists.
func (r *Repository) CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error) {
	var created *models.Round

	err := sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		row, err := q.CreateRound(ctx, db.CreateRoundParams{
			ID:              uuid.New(),
			Sentence:        req.Sentence,
			StartTimeMs:     sqlutil.ToMillis(req.StartTime),
			DurationSeconds: int32(req.Duration / time.Second),
		})
		if err != nil {
			if sqlutil.IsUniqueViolation(err) {
				return ErrActiveRoundExists
			}
			return fmt.Errorf("insert round: %w", err)
		}
		created = r.dbRoundToModel(row)

		return r.insertOutbox(ctx, q, created.ID, events.EventTypeRoundStarted, req.StartTime,
			events.NewRoundStartedPayload(created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// EndRound transitions an active round to ended and records RoundEnded in the
// outbox. It reports false when the round was already ended.
func (r *Repository) EndRound(ctx context.Context, id uuid.UUID, endedAt time.Time) (bool, error) {
	var ended bool

	err := sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		rows, err := q.EndRound(ctx, db.EndRoundParams{
			ID:        id,
			EndedAtMs: sqlutil.ToMillis(endedAt),
		})
		if err != nil {
			return fmt.Errorf("update round: %w", err)
		}
		if rows == 0 {
			return nil
		}
		ended = true

		return r.insertOutbox(ctx, q, id, events.EventTypeRoundEnded, endedAt, events.RoundEndedPayload{
			RoundID: id.String(),
			EndedAt: endedAt,
		})
	})
	if err != nil {
		return false, fmt.Errorf("failed to end round: %w", err)
	}
	return ended, nil
}

// JoinRound inserts the participation unless it exists and returns the stored row.
func (r *Repository) JoinRound(ctx context.Context, roundID, playerID uuid.UUID, at time.Time) (*models.Participation, error) {
	_, err := r.queries.JoinRound(ctx, db.JoinRoundParams{
		ID:          uuid.New(),
		RoundID:     roundID,
		PlayerID:    playerID,
		UpdatedAtMs: sqlutil.ToMillis(at),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join round: %w", err)
	}
	return r.GetParticipation(ctx, roundID, playerID)
}

func (r *Repository) GetParticipation(ctx context.Context, roundID, playerID uuid.UUID) (*models.Participation, error) {
	row, err := r.queries.GetRoundPlayer(ctx, db.GetRoundPlayerParams{
		RoundID:  roundID,
		PlayerID: playerID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participation: %w", err)
	}
	return r.dbParticipationToModel(row), nil
}

// SaveProgress overwrites the participation's metrics. It returns nil without
// an error when the player never joined the round.
func (r *Repository) SaveProgress(ctx context.Context, update models.ProgressUpdate, at time.Time) (*models.Participation, error) {
	row, err := r.queries.UpdateRoundPlayerProgress(ctx, db.UpdateRoundPlayerProgressParams{
		RoundID:      update.RoundID,
		PlayerID:     update.PlayerID,
		ProgressText: update.ProgressText,
		Wpm:          update.WPM,
		Accuracy:     update.Accuracy,
		UpdatedAtMs:  sqlutil.ToMillis(at),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return r.dbParticipationToModel(row), nil
}

func (r *Repository) CountParticipantsByAuthID(ctx context.Context, roundID uuid.UUID, authID string) (int64, error) {
	count, err := r.queries.CountRoundParticipantsByAuthID(ctx, db.CountRoundParticipantsByAuthIDParams{
		RoundID: roundID,
		AuthID:  authID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// insertOutbox stores the full websocket envelope so relays forward it untouched.
func (r *Repository) insertOutbox(ctx context.Context, q *db.Queries, roundID uuid.UUID, eventType events.EventType, at time.Time, payload any) error {
	evt, err := events.NewRoundEvent(roundID, eventType, at, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	err = q.InsertRoundOutbox(ctx, db.InsertRoundOutboxParams{
		ID:          uuid.MustParse(evt.ID),
		RoundID:     roundID,
		EventType:   string(eventType),
		Payload:     string(data),
		CreatedAtMs: sqlutil.ToMillis(at),
	})
	if err != nil {
		return fmt.Errorf("insert outbox %s: %w", eventType, err)
	}
	return nil
}

func (r *Repository) dbRoundToModel(row db.Round) *models.Round {
	return &models.Round{
		ID:        row.ID,
		Sentence:  row.Sentence,
		StartTime: sqlutil.FromMillis(row.StartTimeMs),
		Duration:  time.Duration(row.DurationSeconds) * time.Second,
		Status:    models.RoundStatus(row.Status),
		EndedAt:   sqlutil.FromNullMillis(row.EndedAtMs),
	}
}

func (r *Repository) dbParticipationToModel(row db.RoundPlayer) *models.Participation {
	return &models.Participation{
		ID:           row.ID,
		RoundID:      row.RoundID,
		PlayerID:     row.PlayerID,
		ProgressText: row.ProgressText,
		WPM:          row.Wpm,
		Accuracy:     row.Accuracy,
		UpdatedAt:    sqlutil.FromMillis(row.UpdatedAtMs),
	}
}
