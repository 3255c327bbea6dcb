package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus defines the status of a round.
type RoundStatus string

const (
	RoundStatusActive RoundStatus = "active"
	RoundStatusEnded  RoundStatus = "ended"
)

// Round is one timed competitive interval with a fixed sentence and duration.
type Round struct {
	ID        uuid.UUID     `json:"id"`
	Sentence  string        `json:"sentence"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Status    RoundStatus   `json:"status"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// Deadline is the wall-clock instant the round stops accepting input.
func (r *Round) Deadline() time.Time {
	return r.StartTime.Add(r.Duration)
}

// ExpiredAt reports whether the round's deadline has passed at now.
func (r *Round) ExpiredAt(now time.Time) bool {
	return !now.Before(r.Deadline())
}
