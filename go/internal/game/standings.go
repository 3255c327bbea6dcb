package game

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/models"
)

// Standings holds the latest snapshot per player for one round. Later
// snapshots for a player replace earlier ones. Not safe for concurrent use.
type Standings struct {
	roundID   uuid.UUID
	snapshots map[uuid.UUID]models.ProgressSnapshot
}

func NewStandings() *Standings {
	return &Standings{snapshots: make(map[uuid.UUID]models.ProgressSnapshot)}
}

// Reset drops every snapshot and starts accepting roundID only.
func (s *Standings) Reset(roundID uuid.UUID) {
	s.roundID = roundID
	clear(s.snapshots)
}

// Apply stores snapshot if it belongs to the current round.
func (s *Standings) Apply(roundID uuid.UUID, snapshot models.ProgressSnapshot) bool {
	if roundID == uuid.Nil || roundID != s.roundID || snapshot.PlayerID == uuid.Nil {
		return false
	}
	s.snapshots[snapshot.PlayerID] = snapshot
	return true
}

// Active reports whether anyone has typed anything this round.
func (s *Standings) Active() bool {
	for _, snap := range s.snapshots {
		if snap.TypedText != "" {
			return true
		}
	}
	return false
}

func (s *Standings) count() int {
	return len(s.snapshots)
}

// Ranked returns a copy ordered by WPM descending.
func (s *Standings) Ranked() []models.ProgressSnapshot {
	list := make([]models.ProgressSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		list = append(list, snap)
	}
	Rank(list)
	return list
}

// Rank sorts snapshots by WPM descending, then accuracy, then name.
func Rank(list []models.ProgressSnapshot) {
	slices.SortFunc(list, func(a, b models.ProgressSnapshot) int {
		if c := cmp.Compare(b.WPM, a.WPM); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Accuracy, a.Accuracy); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerName, b.PlayerName)
	})
}
