package game

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSecondsLeft(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"at start", 0, 60},
		{"partial second rounds up", 500 * time.Millisecond, 60},
		{"last fraction", 59*time.Second + time.Millisecond, 1},
		{"exactly over", 60 * time.Second, 0},
		{"long over", 5 * time.Minute, 0},
		{"clock behind start", -2 * time.Second, 62},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SecondsLeft(t0, 60*time.Second, t0.Add(tt.elapsed)))
		})
	}
}

func recvTick(t *testing.T, ticks <-chan int) int {
	t.Helper()
	select {
	case v := <-ticks:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for tick")
		return -1
	}
}

func TestRoundTimer_CountsDownAndFiresOnce(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	timer := NewRoundTimer(clock)
	ticks := make(chan int, 16)
	var fired atomic.Int32

	left := timer.Start(t0, 3*time.Second, func(l int) { ticks <- l }, func() { fired.Add(1) })
	assert.Equal(t, 3, left)
	assert.Equal(t, 3, recvTick(t, ticks))

	for want := 2; want >= 0; want-- {
		clock.Advance(time.Second)
		assert.Equal(t, want, recvTick(t, ticks))
	}
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(5 * time.Second)
	assert.Never(t, func() bool { return len(ticks) > 0 || fired.Load() != 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRoundTimer_ExpiredRoundFiresImmediately(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0.Add(2 * time.Minute))
	timer := NewRoundTimer(clock)
	ticks := make(chan int, 4)
	var fired atomic.Int32

	left := timer.Start(t0, 60*time.Second, func(l int) { ticks <- l }, func() { fired.Add(1) })
	assert.Equal(t, 0, left)
	assert.Equal(t, 0, recvTick(t, ticks))
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRoundTimer_Stop(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	timer := NewRoundTimer(clock)
	ticks := make(chan int, 16)
	var fired atomic.Int32

	timer.Start(t0, 2*time.Second, func(l int) { ticks <- l }, func() { fired.Add(1) })
	assert.Equal(t, 2, recvTick(t, ticks))

	timer.Stop()
	clock.Advance(5 * time.Second)
	assert.Never(t, func() bool { return len(ticks) > 0 || fired.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRoundTimer_StartReplacesPrevious(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	timer := NewRoundTimer(clock)
	first := make(chan int, 16)
	second := make(chan int, 16)
	var firstFired, secondFired atomic.Int32

	timer.Start(t0, 10*time.Second, func(l int) { first <- l }, func() { firstFired.Add(1) })
	assert.Equal(t, 10, recvTick(t, first))

	timer.Start(t0, 2*time.Second, func(l int) { second <- l }, func() { secondFired.Add(1) })
	assert.Equal(t, 2, recvTick(t, second))

	clock.Advance(time.Second)
	assert.Equal(t, 1, recvTick(t, second))
	clock.Advance(time.Second)
	assert.Equal(t, 0, recvTick(t, second))

	require.Eventually(t, func() bool { return secondFired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, firstFired.Load())
	assert.Empty(t, first)
}
