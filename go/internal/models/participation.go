package models

import (
	"time"

	"github.com/google/uuid"
)

// Participation is a player's join record and last submitted metrics for one round.
type Participation struct {
	ID           uuid.UUID `json:"id"`
	RoundID      uuid.UUID `json:"round_id"`
	PlayerID     uuid.UUID `json:"player_id"`
	ProgressText string    `json:"progress_text"`
	WPM          float64   `json:"wpm"`
	Accuracy     float64   `json:"accuracy"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProgressUpdate is the final submission of a player's state for a round.
type ProgressUpdate struct {
	RoundID      uuid.UUID `json:"round_id"`
	PlayerID     uuid.UUID `json:"player_id"`
	ProgressText string    `json:"progress_text"`
	WPM          float64   `json:"wpm"`
	Accuracy     float64   `json:"accuracy"`
}
