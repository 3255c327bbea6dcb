package models

import "github.com/google/uuid"

// ProgressSnapshot is an ephemeral progress broadcast from one player.
// The JSON shape is the broadcast wire format.
type ProgressSnapshot struct {
	PlayerID   uuid.UUID `json:"playerId"`
	PlayerName string    `json:"playerName"`
	TypedText  string    `json:"typedText"`
	WPM        int       `json:"wpm"`
	Accuracy   float64   `json:"accuracy"`
}
