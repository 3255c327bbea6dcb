package typing

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is a point-in-time copy of a Store.
type State struct {
	Sentence  string
	TypedText string
	StartedAt time.Time // zero until the first keystroke
	WPM       int
	Accuracy  float64
}

// Started reports whether the player has typed since the sentence was set.
func (s State) Started() bool {
	return !s.StartedAt.IsZero()
}

// Store holds one client's typing state for the current sentence.
type Store struct {
	mu    sync.RWMutex
	clock clockwork.Clock
	state State
}

// NewStore creates an empty store reading time from clock.
func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock: clock,
		state: State{Accuracy: 1},
	}
}

// SetSentence installs a new target and clears all progress.
func (s *Store) SetSentence(sentence string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Sentence: sentence, Accuracy: 1}
}

// OnType replaces the typed text and recomputes metrics. The first call after a
// sentence change starts the clock.
func (s *Store) OnType(text string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.state.StartedAt.IsZero() {
		s.state.StartedAt = now
	}
	s.state.TypedText = text
	s.state.Accuracy = Accuracy(s.state.Sentence, text)
	s.state.WPM = WPM(s.state.Sentence, text, s.state.StartedAt, now)
	return s.state
}

// Reset clears progress but keeps the sentence.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Sentence: s.state.Sentence, Accuracy: 1}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
