package events

import (
	"time"

	"github.com/mcdev12/typerace/go/internal/models"
)

// Event payload types shared by the round authority, the outbox and the gateway

// RoundStartedPayload is the payload for a RoundStarted event
type RoundStartedPayload struct {
	RoundID         string    `json:"round_id"`
	Sentence        string    `json:"sentence"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int       `json:"duration_seconds"`
}

// RoundEndedPayload is the payload for a RoundEnded event
type RoundEndedPayload struct {
	RoundID string    `json:"round_id"`
	EndedAt time.Time `json:"ended_at"`
}

// ProgressPayload is the payload for a Progress event
type ProgressPayload = models.ProgressSnapshot

func NewRoundStartedPayload(r *models.Round) RoundStartedPayload {
	return RoundStartedPayload{
		RoundID:         r.ID.String(),
		Sentence:        r.Sentence,
		StartTime:       r.StartTime,
		DurationSeconds: int(r.Duration / time.Second),
	}
}
