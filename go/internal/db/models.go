package db

import (
	"database/sql"

	"github.com/google/uuid"
)

type Player struct {
	ID          uuid.UUID
	AuthID      string
	Name        string
	CreatedAtMs int64
}

type Round struct {
	ID              uuid.UUID
	Sentence        string
	StartTimeMs     int64
	DurationSeconds int32
	Status          string
	EndedAtMs       sql.NullInt64
}

type RoundPlayer struct {
	ID           uuid.UUID
	RoundID      uuid.UUID
	PlayerID     uuid.UUID
	ProgressText string
	Wpm          float64
	Accuracy     float64
	UpdatedAtMs  int64
}

type RoundOutbox struct {
	ID          uuid.UUID
	RoundID     uuid.UUID
	EventType   string
	Payload     string
	CreatedAtMs int64
	SentAtMs    sql.NullInt64
}
