package game

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimerCadence is how often a running RoundTimer recomputes.
const TimerCadence = time.Second

// SecondsLeft is max(0, ceil(duration - (now - start))) in whole seconds.
func SecondsLeft(start time.Time, duration time.Duration, now time.Time) int {
	remaining := duration - now.Sub(start)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

// RoundTimer counts down to a round's end on an injected clock. Callbacks run
// on the timer's goroutine; onTimeUp fires at most once per Start.
type RoundTimer struct {
	clock clockwork.Clock

	mu   sync.Mutex
	gen  uint64
	stop chan struct{}
}

func NewRoundTimer(clock clockwork.Clock) *RoundTimer {
	return &RoundTimer{clock: clock}
}

// Start replaces any running countdown. The first value is computed
// immediately and returned; it is also delivered to onTick before the
// first tick of the clock.
func (t *RoundTimer) Start(start time.Time, duration time.Duration, onTick func(secondsLeft int), onTimeUp func()) int {
	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
	}
	t.gen++
	gen := t.gen
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	left := SecondsLeft(start, duration, t.clock.Now())
	ticker := t.clock.NewTicker(TimerCadence)

	go func() {
		defer ticker.Stop()

		report := func(left int) bool {
			if !t.current(gen) {
				return false
			}
			onTick(left)
			if left == 0 {
				onTimeUp()
				t.finish(gen)
				return false
			}
			return true
		}

		if !report(left) {
			return
		}
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				if !report(SecondsLeft(start, duration, t.clock.Now())) {
					return
				}
			}
		}
	}()

	return left
}

// Stop cancels the running countdown, if any.
func (t *RoundTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.gen++
}

func (t *RoundTimer) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen == gen
}

func (t *RoundTimer) finish(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen == gen && t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}
