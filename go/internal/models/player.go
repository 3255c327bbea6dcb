package models

import (
	"time"

	"github.com/google/uuid"
)

// Player represents an anonymous competitor
type Player struct {
	ID        uuid.UUID `json:"id"`
	AuthID    string    `json:"auth_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayerStats are lifetime aggregates derived from a player's participations.
type PlayerStats struct {
	PlayerID     uuid.UUID `json:"player_id"`
	AvgWPM       float64   `json:"avg_wpm"`
	AvgAccuracy  float64   `json:"avg_accuracy"`
	RoundsPlayed int       `json:"rounds_played"`
}
