package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthority struct {
	mu        sync.Mutex
	rounds    []*models.Round
	fetchErrs []error
	joinErrs  []error
	endErr    error
	endGate   chan struct{} // when set, EndRound blocks until it is closed

	fetches    int
	joins      []uuid.UUID
	saves      []models.ProgressUpdate
	ends       []uuid.UUID
	statsCalls int
}

func (f *fakeAuthority) GetActiveRound(context.Context) (*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		return nil, err
	}
	r := f.rounds[0]
	if len(f.rounds) > 1 {
		f.rounds = f.rounds[1:]
	}
	return r, nil
}

func (f *fakeAuthority) JoinRound(_ context.Context, roundID, playerID uuid.UUID) (*models.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, roundID)
	if len(f.joinErrs) > 0 {
		err := f.joinErrs[0]
		f.joinErrs = f.joinErrs[1:]
		return nil, err
	}
	return &models.Participation{ID: uuid.New(), RoundID: roundID, PlayerID: playerID, Accuracy: 1}, nil
}

func (f *fakeAuthority) SaveProgress(_ context.Context, update models.ProgressUpdate) (*models.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, update)
	return &models.Participation{RoundID: update.RoundID, PlayerID: update.PlayerID}, nil
}

func (f *fakeAuthority) EndRound(ctx context.Context, roundID uuid.UUID) error {
	f.mu.Lock()
	f.ends = append(f.ends, roundID)
	err, gate := f.endErr, f.endGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeAuthority) GetPlayerStats(_ context.Context, playerID uuid.UUID) (*models.PlayerStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	return &models.PlayerStats{PlayerID: playerID, RoundsPlayed: f.statsCalls}, nil
}

type authorityCalls struct {
	fetches    int
	joins      []uuid.UUID
	saves      []models.ProgressUpdate
	ends       []uuid.UUID
	statsCalls int
}

func (f *fakeAuthority) snapshot() authorityCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return authorityCalls{
		fetches:    f.fetches,
		joins:      append([]uuid.UUID(nil), f.joins...),
		saves:      append([]models.ProgressUpdate(nil), f.saves...),
		ends:       append([]uuid.UUID(nil), f.ends...),
		statsCalls: f.statsCalls,
	}
}

type published struct {
	roundID  uuid.UUID
	snapshot models.ProgressSnapshot
}

type fakeChannel struct {
	mu            sync.Mutex
	subscriptions []uuid.UUID
	published     []published
}

func (f *fakeChannel) Subscribe(roundID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions = append(f.subscriptions, roundID)
	return nil
}

func (f *fakeChannel) Publish(roundID uuid.UUID, snapshot models.ProgressSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{roundID, snapshot})
	return nil
}

func (f *fakeChannel) subscribed() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.subscriptions...)
}

func (f *fakeChannel) publishes() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}

type controllerFixture struct {
	clock      *clockwork.FakeClock
	authority  *fakeAuthority
	channel    *fakeChannel
	controller *Controller
	player     *models.Player
}

func newRound(start time.Time) *models.Round {
	return &models.Round{
		ID:        uuid.New(),
		Sentence:  "the quick brown fox",
		StartTime: start,
		Duration:  60 * time.Second,
		Status:    models.RoundStatusActive,
	}
}

func newControllerFixture(t *testing.T, authority *fakeAuthority) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		clock:     clockwork.NewFakeClockAt(t0),
		authority: authority,
		channel:   &fakeChannel{},
		player:    &models.Player{ID: uuid.New(), AuthID: "auth-1", Name: "Quiet Falcon"},
	}
	f.controller = NewController(authority, f.channel, f.clock, f.player, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.controller.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return f
}

func (f *controllerFixture) view(t *testing.T) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := f.controller.View(ctx)
	require.NoError(t, err)
	return v
}

func (f *controllerFixture) waitFor(t *testing.T, cond func(View) bool) View {
	t.Helper()
	var last View
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		v, err := f.controller.View(ctx)
		if err != nil {
			return false
		}
		last = v
		return cond(v)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func joinedTo(roundID uuid.UUID) func(View) bool {
	return func(v View) bool {
		return v.Round != nil && v.Round.ID == roundID && v.Joined
	}
}

func progressEvent(t *testing.T, roundID uuid.UUID, snapshot models.ProgressSnapshot) *events.RoundEvent {
	t.Helper()
	event, err := events.NewRoundEvent(roundID, events.EventTypeProgress, t0, snapshot)
	require.NoError(t, err)
	return event
}

func roundEnded(t *testing.T, roundID uuid.UUID) *events.RoundEvent {
	t.Helper()
	event, err := events.NewRoundEvent(roundID, events.EventTypeRoundEnded, t0, events.RoundEndedPayload{RoundID: roundID.String()})
	require.NoError(t, err)
	return event
}

func TestController_JoinsOnceAndPublishes(t *testing.T) {
	round := newRound(t0)
	f := newControllerFixture(t, &fakeAuthority{rounds: []*models.Round{round}})

	v := f.waitFor(t, joinedTo(round.ID))
	assert.Equal(t, PhasePlaying, v.Phase)
	assert.Equal(t, 60, v.SecondsLeft)
	assert.Equal(t, round.Sentence, v.Typing.Sentence)

	f.controller.Type("the")
	f.controller.Type("the q")
	require.Eventually(t, func() bool { return len(f.channel.publishes()) == 2 }, time.Second, 5*time.Millisecond)

	last := f.channel.publishes()[1]
	assert.Equal(t, round.ID, last.roundID)
	assert.Equal(t, f.player.ID, last.snapshot.PlayerID)
	assert.Equal(t, "the q", last.snapshot.TypedText)

	assert.Equal(t, []uuid.UUID{round.ID}, f.authority.snapshot().joins)
	require.Eventually(t, func() bool { return f.authority.snapshot().statsCalls == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uuid.UUID{round.ID}, f.channel.subscribed())
}

func TestController_FailedJoinRetriedPerTick(t *testing.T) {
	round := newRound(t0)
	firstErr := errors.New("first")
	secondErr := errors.New("second")
	f := newControllerFixture(t, &fakeAuthority{
		rounds:   []*models.Round{round},
		joinErrs: []error{firstErr, secondErr},
	})

	f.waitFor(t, func(v View) bool { return errors.Is(v.Err, firstErr) })
	assert.Len(t, f.authority.snapshot().joins, 1)

	// typing before the join succeeds is not broadcast
	f.controller.Type("t")
	f.waitFor(t, func(v View) bool { return v.Typing.TypedText == "t" })
	assert.Empty(t, f.channel.publishes())

	f.clock.Advance(time.Second)
	f.waitFor(t, func(v View) bool { return v.SecondsLeft == 59 && errors.Is(v.Err, secondErr) })
	assert.Len(t, f.authority.snapshot().joins, 2)

	f.clock.Advance(time.Second)
	f.waitFor(t, joinedTo(round.ID))
	assert.Len(t, f.authority.snapshot().joins, 3)

	f.clock.Advance(time.Second)
	f.waitFor(t, func(v View) bool { return v.SecondsLeft == 57 })
	assert.Len(t, f.authority.snapshot().joins, 3)
}

func TestController_IdleRoundIsEndedAndReplaced(t *testing.T) {
	first := newRound(t0)
	second := newRound(t0.Add(60 * time.Second))
	f := newControllerFixture(t, &fakeAuthority{rounds: []*models.Round{first, second}})
	f.waitFor(t, joinedTo(first.ID))

	f.clock.Advance(60 * time.Second)
	v := f.waitFor(t, joinedTo(second.ID))
	assert.Equal(t, PhasePlaying, v.Phase)

	calls := f.authority.snapshot()
	assert.Equal(t, []uuid.UUID{first.ID}, calls.ends)
	assert.Empty(t, calls.saves)
	assert.Equal(t, []uuid.UUID{first.ID, uuid.Nil, second.ID}, f.channel.subscribed())
}

func TestController_IdleEndFailureWaitsForRetry(t *testing.T) {
	first := newRound(t0)
	second := newRound(t0.Add(60 * time.Second))
	authority := &fakeAuthority{rounds: []*models.Round{first, second}, endErr: errors.New("forbidden")}
	f := newControllerFixture(t, authority)
	f.waitFor(t, joinedTo(first.ID))

	f.clock.Advance(60 * time.Second)
	v := f.waitFor(t, func(v View) bool { return v.Err != nil && v.Phase == PhasePlaying })
	assert.Equal(t, first.ID, v.Round.ID)

	calls := f.authority.snapshot()
	assert.Len(t, calls.ends, 1)
	assert.Equal(t, 1, calls.fetches)

	f.clock.Advance(DefaultConfig().RetryInterval)
	f.waitFor(t, joinedTo(second.ID))
	assert.Equal(t, 2, f.authority.snapshot().fetches)
}

func TestController_ActiveRoundShowsResultsThenContinues(t *testing.T) {
	first := newRound(t0)
	second := newRound(t0.Add(70 * time.Second))
	f := newControllerFixture(t, &fakeAuthority{rounds: []*models.Round{first, second}})
	f.waitFor(t, joinedTo(first.ID))

	rival := models.ProgressSnapshot{PlayerID: uuid.New(), PlayerName: "Loud Heron", TypedText: "the quick", WPM: 80, Accuracy: 1}
	f.controller.Deliver(progressEvent(t, first.ID, rival))
	f.controller.Deliver(progressEvent(t, uuid.New(), models.ProgressSnapshot{PlayerID: uuid.New(), TypedText: "x", WPM: 999}))

	f.clock.Advance(30 * time.Second)
	f.controller.Type("the")
	f.waitFor(t, func(v View) bool { return len(v.Standings) == 1 && v.Typing.TypedText == "the" })

	f.clock.Advance(30 * time.Second)
	v := f.waitFor(t, func(v View) bool { return v.Phase == PhaseResults })
	assert.Equal(t, 8, v.ResultsLeft)
	require.Len(t, v.Results, 2)
	assert.Equal(t, rival.PlayerID, v.Results[0].PlayerID)
	assert.Equal(t, f.player.ID, v.Results[1].PlayerID)
	assert.Equal(t, "the", v.Results[1].TypedText)

	calls := f.authority.snapshot()
	require.Len(t, calls.saves, 1)
	assert.Equal(t, "the", calls.saves[0].ProgressText)
	assert.Equal(t, first.ID, calls.saves[0].RoundID)
	assert.Equal(t, []uuid.UUID{first.ID}, calls.ends)

	// input is ignored while results are shown
	f.controller.Type("ignored")
	for left := 7; left >= 1; left-- {
		f.clock.Advance(time.Second)
		f.waitFor(t, func(v View) bool { return v.ResultsLeft == left })
	}
	v = f.view(t)
	assert.Equal(t, "the", v.Typing.TypedText)

	f.clock.Advance(time.Second)
	v = f.waitFor(t, joinedTo(second.ID))
	assert.Equal(t, PhasePlaying, v.Phase)
	assert.Empty(t, v.Typing.TypedText)
	assert.Empty(t, v.Standings)
	require.Eventually(t, func() bool { return f.authority.snapshot().statsCalls == 2 }, time.Second, 5*time.Millisecond)
}

func TestController_RoundEndedPushActsAsTimeUp(t *testing.T) {
	first := newRound(t0)
	second := newRound(t0.Add(10 * time.Second))
	f := newControllerFixture(t, &fakeAuthority{rounds: []*models.Round{first, second}})
	f.waitFor(t, joinedTo(first.ID))

	other, err := events.NewRoundEvent(uuid.New(), events.EventTypeRoundEnded, t0, events.RoundEndedPayload{})
	require.NoError(t, err)
	f.controller.Deliver(other)

	// within the skew of the local deadline, before the timer reaches zero
	f.clock.Advance(59*time.Second + 500*time.Millisecond)
	f.waitFor(t, func(v View) bool { return v.SecondsLeft == 1 })

	f.controller.Deliver(roundEnded(t, first.ID))

	f.waitFor(t, joinedTo(second.ID))
	assert.Equal(t, []uuid.UUID{first.ID}, f.authority.snapshot().ends)
}

func TestController_EarlyRoundEndedPushIgnored(t *testing.T) {
	first := newRound(t0)
	second := newRound(t0.Add(70 * time.Second))
	f := newControllerFixture(t, &fakeAuthority{rounds: []*models.Round{first, second}})
	f.waitFor(t, joinedTo(first.ID))

	f.clock.Advance(time.Second)
	f.controller.Type("the")
	f.waitFor(t, func(v View) bool { return v.SecondsLeft == 59 && v.Typing.TypedText == "the" })

	f.controller.Deliver(roundEnded(t, first.ID))
	f.controller.Type("the q")

	v := f.waitFor(t, func(v View) bool { return v.Typing.TypedText == "the q" })
	assert.Equal(t, PhasePlaying, v.Phase)
	assert.Equal(t, first.ID, v.Round.ID)
	calls := f.authority.snapshot()
	assert.Empty(t, calls.saves)
	assert.Empty(t, calls.ends)

	// the local timer still ends the round
	f.clock.Advance(59 * time.Second)
	f.waitFor(t, func(v View) bool { return v.Phase == PhaseResults })
	calls = f.authority.snapshot()
	assert.Len(t, calls.saves, 1)
	assert.Equal(t, []uuid.UUID{first.ID}, calls.ends)
}

func TestController_SecondTimeUpIgnored(t *testing.T) {
	first := newRound(t0)
	second := newRound(t0.Add(70 * time.Second))
	gate := make(chan struct{})
	authority := &fakeAuthority{rounds: []*models.Round{first, second}, endGate: gate}
	f := newControllerFixture(t, authority)
	f.waitFor(t, joinedTo(first.ID))

	f.controller.Type("the")
	f.waitFor(t, func(v View) bool { return v.Typing.TypedText == "the" })

	f.clock.Advance(60 * time.Second)
	f.waitFor(t, func(v View) bool { return v.Phase == PhaseSaving })
	require.Eventually(t, func() bool { return len(f.authority.snapshot().ends) == 1 }, time.Second, 5*time.Millisecond)

	// repeats while saving; View goes through the inbox after them
	f.controller.post(timeUp{roundID: first.ID})
	f.controller.Deliver(roundEnded(t, first.ID))
	assert.Equal(t, PhaseSaving, f.view(t).Phase)

	close(gate)
	f.waitFor(t, func(v View) bool { return v.Phase == PhaseResults })

	f.controller.post(timeUp{roundID: first.ID})
	f.controller.Deliver(roundEnded(t, first.ID))
	assert.Equal(t, PhaseResults, f.view(t).Phase)

	calls := f.authority.snapshot()
	assert.Len(t, calls.saves, 1)
	assert.Len(t, calls.ends, 1)
}

func TestController_FetchFailureSurfacedAndRetried(t *testing.T) {
	round := newRound(t0)
	f := newControllerFixture(t, &fakeAuthority{
		rounds:    []*models.Round{round},
		fetchErrs: []error{errors.New("unavailable")},
	})

	v := f.waitFor(t, func(v View) bool { return v.Err != nil })
	assert.Nil(t, v.Round)
	assert.Equal(t, 1, f.authority.snapshot().fetches)

	f.clock.Advance(DefaultConfig().RetryInterval)
	v = f.waitFor(t, joinedTo(round.ID))
	assert.NoError(t, v.Err)
}

func TestController_RoundStartedPushFetchesWhenIdle(t *testing.T) {
	round := newRound(t0)
	f := newControllerFixture(t, &fakeAuthority{
		rounds:    []*models.Round{round},
		fetchErrs: []error{errors.New("unavailable")},
	})
	f.waitFor(t, func(v View) bool { return v.Err != nil })

	started, err := events.NewRoundEvent(round.ID, events.EventTypeRoundStarted, t0, events.NewRoundStartedPayload(round))
	require.NoError(t, err)
	f.controller.Deliver(started)

	f.waitFor(t, joinedTo(round.ID))
}

func TestController_OnChangeReceivesViews(t *testing.T) {
	round := newRound(t0)
	var mu sync.Mutex
	var phases []Phase

	clock := clockwork.NewFakeClockAt(t0)
	cfg := DefaultConfig()
	cfg.OnChange = func(v View) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, v.Phase)
	}
	c := NewController(&fakeAuthority{rounds: []*models.Round{round}}, &fakeChannel{}, clock, &models.Player{ID: uuid.New()}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(phases) >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	_, err := c.View(context.Background())
	assert.Error(t, err)
}
