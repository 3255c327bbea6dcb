package round

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/identity"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/player"
	"github.com/rs/zerolog/log"
)

const DefaultDuration = 60 * time.Second

// RoundRepository defines what the app layer needs from the repository
type RoundRepository interface {
	GetActiveRound(ctx context.Context) (*models.Round, error)
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error)
	EndRound(ctx context.Context, id uuid.UUID, endedAt time.Time) (bool, error)
	JoinRound(ctx context.Context, roundID, playerID uuid.UUID, at time.Time) (*models.Participation, error)
	GetParticipation(ctx context.Context, roundID, playerID uuid.UUID) (*models.Participation, error)
	SaveProgress(ctx context.Context, update models.ProgressUpdate, at time.Time) (*models.Participation, error)
	CountParticipantsByAuthID(ctx context.Context, roundID uuid.UUID, authID string) (int64, error)
}

// PlayerApp is what the round authority needs to check ownership
type PlayerApp interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
}

// SentencePicker chooses the sentence for a new round
type SentencePicker interface {
	Pick() string
}

// App is the round authority. It is the single source of truth for which
// round is active and how participations change.
type App struct {
	repo      RoundRepository
	players   PlayerApp
	sentences SentencePicker
	clock     clockwork.Clock
	duration  time.Duration
}

// NewApp creates a new round App. A zero duration uses DefaultDuration.
func NewApp(repo RoundRepository, players PlayerApp, sentences SentencePicker, clock clockwork.Clock, duration time.Duration) *App {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &App{
		repo:      repo,
		players:   players,
		sentences: sentences,
		clock:     clock,
		duration:  duration,
	}
}

// GetOrCreateActive returns the active round, ending it first when its
// deadline has passed and starting a replacement.
func (a *App) GetOrCreateActive(ctx context.Context) (*models.Round, error) {
	now := a.clock.Now()

	active, err := a.repo.GetActiveRound(ctx)
	switch {
	case err == nil:
		if !active.ExpiredAt(now) {
			return active, nil
		}
		if _, err := a.repo.EndRound(ctx, active.ID, now); err != nil {
			return nil, fmt.Errorf("failed to end expired round: %w", err)
		}
		log.Info().Str("round_id", active.ID.String()).Msg("ended expired round")
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	created, err := a.repo.CreateRound(ctx, CreateRoundRequest{
		Sentence:  a.sentences.Pick(),
		StartTime: now,
		Duration:  a.duration,
	})
	if errors.Is(err, ErrActiveRoundExists) {
		// another caller won the race, serve its round
		winner, err := a.repo.GetActiveRound(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read active round after conflict: %w", err)
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	log.Info().
		Str("round_id", created.ID.String()).
		Dur("duration", created.Duration).
		Msg("round started")

	return created, nil
}

// End marks the round ended. Only participants may end a round; ending an
// already ended round succeeds without effect.
func (a *App) End(ctx context.Context, roundID uuid.UUID) error {
	authID, err := identity.RequireAuthID(ctx)
	if err != nil {
		return err
	}

	count, err := a.repo.CountParticipantsByAuthID(ctx, roundID, authID)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: caller is not a participant of round %s", ErrForbidden, roundID)
	}

	ended, err := a.repo.EndRound(ctx, roundID, a.clock.Now())
	if err != nil {
		return err
	}
	if ended {
		log.Info().Str("round_id", roundID.String()).Msg("round ended")
	} else {
		log.Debug().Str("round_id", roundID.String()).Msg("round already ended")
	}
	return nil
}

// Join records the caller's player in the round. Joining twice returns the
// existing participation.
func (a *App) Join(ctx context.Context, roundID, playerID uuid.UUID) (*models.Participation, error) {
	if _, err := a.ownedPlayer(ctx, playerID); err != nil {
		return nil, err
	}
	if _, err := a.repo.GetRound(ctx, roundID); err != nil {
		return nil, err
	}

	participation, err := a.repo.JoinRound(ctx, roundID, playerID, a.clock.Now())
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("round_id", roundID.String()).
		Str("player_id", playerID.String()).
		Msg("player joined round")

	return participation, nil
}

// SaveProgress stores the final metrics of the caller's participation. A
// player that never joined gets (nil, nil).
func (a *App) SaveProgress(ctx context.Context, update models.ProgressUpdate) (*models.Participation, error) {
	if err := validateProgress(update); err != nil {
		return nil, err
	}
	if _, err := a.ownedPlayer(ctx, update.PlayerID); err != nil {
		return nil, err
	}

	participation, err := a.repo.SaveProgress(ctx, update, a.clock.Now())
	if err != nil {
		return nil, err
	}
	if participation == nil {
		log.Debug().
			Str("round_id", update.RoundID.String()).
			Str("player_id", update.PlayerID.String()).
			Msg("progress for unjoined player ignored")
	}
	return participation, nil
}

// AuthorizePublisher checks that authID owns playerID and that the player
// joined roundID. The returned player carries the stored display name.
func (a *App) AuthorizePublisher(ctx context.Context, roundID, playerID uuid.UUID, authID string) (*models.Player, error) {
	p, err := a.playerOwnedBy(ctx, playerID, authID)
	if err != nil {
		return nil, err
	}

	if _, err := a.repo.GetParticipation(ctx, roundID, playerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: player has not joined the round", ErrForbidden)
		}
		return nil, err
	}
	return p, nil
}

func (a *App) ownedPlayer(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	authID, err := identity.RequireAuthID(ctx)
	if err != nil {
		return nil, err
	}
	return a.playerOwnedBy(ctx, playerID, authID)
}

func (a *App) playerOwnedBy(ctx context.Context, playerID uuid.UUID, authID string) (*models.Player, error) {
	p, err := a.players.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, player.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown player", ErrForbidden)
		}
		return nil, err
	}
	if p.AuthID != authID {
		return nil, fmt.Errorf("%w: player belongs to another identity", ErrForbidden)
	}
	return p, nil
}

func validateProgress(update models.ProgressUpdate) error {
	if update.WPM < 0 {
		return fmt.Errorf("%w: wpm must not be negative", ErrInvalidArgument)
	}
	if update.Accuracy < 0 || update.Accuracy > 1 {
		return fmt.Errorf("%w: accuracy must be between 0 and 1", ErrInvalidArgument)
	}
	return nil
}
