package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/models"
)

// Round is the wire form of models.Round. Duration is in whole seconds.
type Round struct {
	ID        string    `json:"id"`
	Sentence  string    `json:"sentence"`
	StartTime time.Time `json:"startTime"`
	Duration  int       `json:"duration"`
	Status    string    `json:"status"`
}

type Player struct {
	ID        string    `json:"id"`
	AuthID    string    `json:"authId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Participation struct {
	ID           string    `json:"id"`
	RoundID      string    `json:"roundId"`
	PlayerID     string    `json:"playerId"`
	ProgressText string    `json:"progressText"`
	WPM          float64   `json:"wpm"`
	Accuracy     float64   `json:"accuracy"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type PlayerStats struct {
	PlayerID     string  `json:"playerId"`
	AvgWPM       float64 `json:"avgWpm"`
	AvgAccuracy  float64 `json:"avgAccuracy"`
	RoundsPlayed int     `json:"roundsPlayed"`
}

// Conversion between wire and domain models

func RoundFromModel(r *models.Round) *Round {
	if r == nil {
		return nil
	}
	return &Round{
		ID:        r.ID.String(),
		Sentence:  r.Sentence,
		StartTime: r.StartTime,
		Duration:  int(r.Duration / time.Second),
		Status:    string(r.Status),
	}
}

func (r *Round) ToModel() (*models.Round, error) {
	if r == nil {
		return nil, fmt.Errorf("round is missing")
	}
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid round id: %w", err)
	}
	return &models.Round{
		ID:        id,
		Sentence:  r.Sentence,
		StartTime: r.StartTime,
		Duration:  time.Duration(r.Duration) * time.Second,
		Status:    models.RoundStatus(r.Status),
	}, nil
}

func PlayerFromModel(p *models.Player) *Player {
	if p == nil {
		return nil
	}
	return &Player{
		ID:        p.ID.String(),
		AuthID:    p.AuthID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
	}
}

func (p *Player) ToModel() (*models.Player, error) {
	if p == nil {
		return nil, fmt.Errorf("player is missing")
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid player id: %w", err)
	}
	return &models.Player{
		ID:        id,
		AuthID:    p.AuthID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
	}, nil
}

func ParticipationFromModel(p *models.Participation) *Participation {
	if p == nil {
		return nil
	}
	return &Participation{
		ID:           p.ID.String(),
		RoundID:      p.RoundID.String(),
		PlayerID:     p.PlayerID.String(),
		ProgressText: p.ProgressText,
		WPM:          p.WPM,
		Accuracy:     p.Accuracy,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (p *Participation) ToModel() (*models.Participation, error) {
	if p == nil {
		return nil, fmt.Errorf("participation is missing")
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid participation id: %w", err)
	}
	roundID, err := uuid.Parse(p.RoundID)
	if err != nil {
		return nil, fmt.Errorf("invalid round id: %w", err)
	}
	playerID, err := uuid.Parse(p.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player id: %w", err)
	}
	return &models.Participation{
		ID:           id,
		RoundID:      roundID,
		PlayerID:     playerID,
		ProgressText: p.ProgressText,
		WPM:          p.WPM,
		Accuracy:     p.Accuracy,
		UpdatedAt:    p.UpdatedAt,
	}, nil
}

func StatsFromModel(s *models.PlayerStats) *PlayerStats {
	if s == nil {
		return nil
	}
	return &PlayerStats{
		PlayerID:     s.PlayerID.String(),
		AvgWPM:       s.AvgWPM,
		AvgAccuracy:  s.AvgAccuracy,
		RoundsPlayed: s.RoundsPlayed,
	}
}

func (s *PlayerStats) ToModel() (*models.PlayerStats, error) {
	if s == nil {
		return nil, fmt.Errorf("stats are missing")
	}
	id, err := uuid.Parse(s.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player id: %w", err)
	}
	return &models.PlayerStats{
		PlayerID:     id,
		AvgWPM:       s.AvgWPM,
		AvgAccuracy:  s.AvgAccuracy,
		RoundsPlayed: s.RoundsPlayed,
	}, nil
}
