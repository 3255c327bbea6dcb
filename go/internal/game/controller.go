package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/typing"
	"github.com/rs/zerolog/log"
)

// Authority defines what the controller needs from the round and player services
type Authority interface {
	GetActiveRound(ctx context.Context) (*models.Round, error)
	JoinRound(ctx context.Context, roundID, playerID uuid.UUID) (*models.Participation, error)
	SaveProgress(ctx context.Context, update models.ProgressUpdate) (*models.Participation, error)
	EndRound(ctx context.Context, roundID uuid.UUID) error
	GetPlayerStats(ctx context.Context, playerID uuid.UUID) (*models.PlayerStats, error)
}

// ProgressChannel is the client end of the progress broadcast. Subscribe with
// uuid.Nil leaves the current round.
type ProgressChannel interface {
	Subscribe(roundID uuid.UUID) error
	Publish(roundID uuid.UUID, snapshot models.ProgressSnapshot) error
}

// RoundEndedSkew is how far ahead of the local deadline a RoundEnded push is
// still treated as time-up.
const RoundEndedSkew = time.Second

type Phase string

const (
	PhasePlaying Phase = "playing"
	PhaseSaving  Phase = "saving"
	PhaseResults Phase = "results"
)

// View is a copy of everything a screen needs to render the game.
type View struct {
	Phase       Phase
	Player      *models.Player
	Round       *models.Round
	Typing      typing.State
	SecondsLeft int
	Joined      bool
	Standings   []models.ProgressSnapshot
	Results     []models.ProgressSnapshot
	ResultsLeft int
	Stats       *models.PlayerStats
	Err         error
}

type Config struct {
	ResultsDuration time.Duration
	RetryInterval   time.Duration
	RequestTimeout  time.Duration
	// OnChange receives a fresh View after every processed message. It runs
	// on the controller goroutine and must not call back into the controller.
	OnChange func(View)
}

func DefaultConfig() Config {
	return Config{
		ResultsDuration: 8 * time.Second,
		RetryInterval:   3 * time.Second,
		RequestTimeout:  10 * time.Second,
	}
}

// Controller drives one player through repeating rounds. All state changes
// happen on the goroutine running Run; everything else talks to it through
// the inbox.
type Controller struct {
	authority Authority
	channel   ProgressChannel
	clock     clockwork.Clock
	config    Config
	player    *models.Player

	inbox chan msg
	done  chan struct{}
	ctx   context.Context

	typing    *typing.Store
	standings *Standings
	timer     *RoundTimer

	phase         Phase
	round         *models.Round
	secondsLeft   int
	joinedRound   uuid.UUID
	joining       bool
	joinFailed    bool
	fetching      bool
	results       []models.ProgressSnapshot
	resultsLeft   int
	resultsTicker clockwork.Ticker
	resultsStop   chan struct{}
	retryTimer    clockwork.Timer
	stats         *models.PlayerStats
	err           error
}

func NewController(authority Authority, channel ProgressChannel, clock clockwork.Clock, player *models.Player, config Config) *Controller {
	return &Controller{
		authority: authority,
		channel:   channel,
		clock:     clock,
		config:    config,
		player:    player,
		inbox:     make(chan msg, 64),
		done:      make(chan struct{}),
		typing:    typing.NewStore(clock),
		standings: NewStandings(),
		timer:     NewRoundTimer(clock),
		phase:     PhasePlaying,
	}
}

// Run processes messages until ctx is done. It must be called once.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer c.teardown()

	c.fetch()
	c.refreshStats()
	c.notify()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-c.inbox:
			if req, ok := m.(viewRequest); ok {
				req.reply <- c.view()
				continue
			}
			c.handle(m)
			c.notify()
		}
	}
}

// Type replaces the local player's typed text.
func (c *Controller) Type(text string) {
	c.post(typed{text: text})
}

// Deliver hands a server push to the controller.
func (c *Controller) Deliver(event *events.RoundEvent) {
	c.post(pushed{event: event})
}

// View returns the current view as seen by the controller goroutine.
func (c *Controller) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case c.inbox <- viewRequest{reply: reply}:
	case <-c.done:
		return View{}, errors.New("controller stopped")
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-c.done:
		return View{}, errors.New("controller stopped")
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (c *Controller) post(m msg) {
	select {
	case c.inbox <- m:
	case <-c.done:
	}
}

func (c *Controller) handle(m msg) {
	switch m := m.(type) {
	case fetchResult:
		c.handleFetch(m)
	case retryFetch:
		c.retryTimer = nil
		if c.phase == PhasePlaying {
			c.fetch()
		}
	case timerTick:
		if c.isCurrent(m.roundID) {
			c.secondsLeft = m.secondsLeft
			if c.joinFailed {
				c.join()
			}
		}
	case timeUp:
		if c.isCurrent(m.roundID) && c.phase == PhasePlaying {
			c.finishRound()
		}
	case joinResult:
		c.handleJoin(m)
	case typed:
		c.handleTyped(m.text)
	case pushed:
		c.handlePush(m.event)
	case idleEnded:
		c.handleIdleEnded(m)
	case submitted:
		c.handleSubmitted(m)
	case resultsTick:
		c.handleResultsTick()
	case statsResult:
		if m.err != nil {
			log.Warn().Err(m.err).Msg("failed to refresh player stats")
			return
		}
		c.stats = m.stats
	}
}

func (c *Controller) isCurrent(roundID uuid.UUID) bool {
	return c.round != nil && c.round.ID == roundID
}

func (c *Controller) fetch() {
	if c.fetching {
		return
	}
	c.fetching = true
	go func() {
		ctx, cancel := c.requestContext()
		defer cancel()
		round, err := c.authority.GetActiveRound(ctx)
		c.post(fetchResult{round: round, err: err})
	}()
}

func (c *Controller) handleFetch(m fetchResult) {
	c.fetching = false
	if m.err == nil && m.round == nil {
		m.err = errors.New("no active round")
	}
	if m.err != nil {
		c.err = fmt.Errorf("failed to get active round: %w", m.err)
		c.scheduleRetry()
		return
	}
	if c.phase != PhasePlaying {
		return
	}
	c.err = nil
	c.loadRound(m.round)
}

func (c *Controller) loadRound(r *models.Round) {
	if !c.isCurrent(r.ID) {
		c.standings.Reset(r.ID)
		c.typing.SetSentence(r.Sentence)
		c.joinedRound = uuid.Nil
		c.joining = false
		c.joinFailed = false
		if err := c.channel.Subscribe(r.ID); err != nil {
			log.Warn().Err(err).Str("round_id", r.ID.String()).Msg("failed to subscribe to round")
		}
	}
	c.round = r

	roundID := r.ID
	c.secondsLeft = c.timer.Start(r.StartTime, r.Duration,
		func(left int) { c.post(timerTick{roundID: roundID, secondsLeft: left}) },
		func() { c.post(timeUp{roundID: roundID}) },
	)

	log.Debug().
		Str("round_id", roundID.String()).
		Int("seconds_left", c.secondsLeft).
		Msg("round loaded")

	c.join()
}

// join makes at most one attempt in flight; failures wait for the next tick.
func (c *Controller) join() {
	if c.phase != PhasePlaying || c.round == nil || c.joining || c.joinedRound == c.round.ID {
		return
	}
	c.joining = true
	c.joinFailed = false

	roundID := c.round.ID
	playerID := c.player.ID
	go func() {
		ctx, cancel := c.requestContext()
		defer cancel()
		participation, err := c.authority.JoinRound(ctx, roundID, playerID)
		c.post(joinResult{roundID: roundID, participation: participation, err: err})
	}()
}

func (c *Controller) handleJoin(m joinResult) {
	if !c.isCurrent(m.roundID) {
		return
	}
	c.joining = false
	if m.err != nil {
		c.joinFailed = true
		c.err = fmt.Errorf("failed to join round: %w", m.err)
		return
	}
	c.joinedRound = m.roundID
	c.err = nil
}

func (c *Controller) handleTyped(text string) {
	if c.phase != PhasePlaying || c.round == nil {
		return
	}
	state := c.typing.OnType(text)
	if c.joinedRound != c.round.ID {
		return
	}
	if err := c.channel.Publish(c.round.ID, c.localSnapshot(state)); err != nil {
		log.Debug().Err(err).Str("round_id", c.round.ID.String()).Msg("failed to publish progress")
	}
}

func (c *Controller) handlePush(event *events.RoundEvent) {
	switch event.Type {
	case events.EventTypeProgress:
		if c.phase != PhasePlaying {
			return
		}
		roundID, err := uuid.Parse(event.RoundID)
		if err != nil {
			return
		}
		payload, err := events.ParseEventPayload(event)
		if err != nil {
			log.Debug().Err(err).Msg("invalid progress payload")
			return
		}
		if snapshot, ok := payload.(events.ProgressPayload); ok {
			c.standings.Apply(roundID, snapshot)
		}

	case events.EventTypeRoundEnded:
		if c.phase != PhasePlaying || c.round == nil || event.RoundID != c.round.ID.String() {
			return
		}
		// an early end from another client does not cut this player's round short
		if !c.round.ExpiredAt(c.clock.Now().Add(RoundEndedSkew)) {
			log.Debug().
				Str("round_id", event.RoundID).
				Int("seconds_left", c.secondsLeft).
				Msg("ignoring round end before local deadline")
			return
		}
		c.finishRound()

	case events.EventTypeRoundStarted:
		if c.round == nil && c.phase == PhasePlaying {
			c.fetch()
		}
	}
}

// finishRound captures the round and either ends it or submits progress.
func (c *Controller) finishRound() {
	c.phase = PhaseSaving
	c.timer.Stop()
	c.secondsLeft = 0

	roundID := c.round.ID
	state := c.typing.State()

	if state.TypedText == "" && !c.standings.Active() {
		go func() {
			ctx, cancel := c.requestContext()
			defer cancel()
			c.post(idleEnded{roundID: roundID, err: c.authority.EndRound(ctx, roundID)})
		}()
		return
	}

	local := c.localSnapshot(state)
	results := c.standings.Ranked()
	merged := false
	for i := range results {
		if results[i].PlayerID == local.PlayerID {
			results[i] = local
			merged = true
		}
	}
	if !merged {
		results = append(results, local)
	}
	Rank(results)
	c.results = results

	update := models.ProgressUpdate{
		RoundID:      roundID,
		PlayerID:     c.player.ID,
		ProgressText: state.TypedText,
		WPM:          float64(state.WPM),
		Accuracy:     state.Accuracy,
	}
	go func() {
		ctx, cancel := c.requestContext()
		defer cancel()
		_, saveErr := c.authority.SaveProgress(ctx, update)
		endErr := c.authority.EndRound(ctx, roundID)
		c.post(submitted{roundID: roundID, saveErr: saveErr, endErr: endErr})
	}()
}

func (c *Controller) handleIdleEnded(m idleEnded) {
	if c.phase != PhaseSaving || !c.isCurrent(m.roundID) {
		return
	}
	c.phase = PhasePlaying
	if m.err != nil {
		c.err = fmt.Errorf("failed to end round: %w", m.err)
		c.scheduleRetry()
		return
	}
	c.resetRound()
	c.fetch()
}

func (c *Controller) handleSubmitted(m submitted) {
	if c.phase != PhaseSaving || !c.isCurrent(m.roundID) {
		return
	}
	if m.saveErr != nil {
		log.Warn().Err(m.saveErr).Str("round_id", m.roundID.String()).Msg("failed to save progress")
	}
	if m.endErr != nil {
		log.Warn().Err(m.endErr).Str("round_id", m.roundID.String()).Msg("failed to end round")
	}
	c.err = errors.Join(m.saveErr, m.endErr)

	c.phase = PhaseResults
	c.resultsLeft = int(math.Ceil(c.config.ResultsDuration.Seconds()))
	c.startResultsTicker()
}

func (c *Controller) handleResultsTick() {
	if c.phase != PhaseResults {
		return
	}
	c.resultsLeft--
	if c.resultsLeft > 0 {
		return
	}
	c.stopResultsTicker()
	c.resetRound()
	c.phase = PhasePlaying
	c.fetch()
	c.refreshStats()
}

// resetRound forgets the round, its join and every snapshot.
func (c *Controller) resetRound() {
	c.round = nil
	c.secondsLeft = 0
	c.results = nil
	c.resultsLeft = 0
	c.joinedRound = uuid.Nil
	c.joining = false
	c.joinFailed = false
	c.typing.SetSentence("")
	c.standings.Reset(uuid.Nil)
	if err := c.channel.Subscribe(uuid.Nil); err != nil {
		log.Debug().Err(err).Msg("failed to leave round")
	}
}

func (c *Controller) startResultsTicker() {
	c.stopResultsTicker()
	ticker := c.clock.NewTicker(time.Second)
	stop := make(chan struct{})
	c.resultsTicker = ticker
	c.resultsStop = stop
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				c.post(resultsTick{})
			}
		}
	}()
}

func (c *Controller) stopResultsTicker() {
	if c.resultsTicker == nil {
		return
	}
	c.resultsTicker.Stop()
	close(c.resultsStop)
	c.resultsTicker = nil
	c.resultsStop = nil
}

func (c *Controller) scheduleRetry() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	c.retryTimer = c.clock.AfterFunc(c.config.RetryInterval, func() {
		c.post(retryFetch{})
	})
}

func (c *Controller) refreshStats() {
	playerID := c.player.ID
	go func() {
		ctx, cancel := c.requestContext()
		defer cancel()
		stats, err := c.authority.GetPlayerStats(ctx, playerID)
		c.post(statsResult{stats: stats, err: err})
	}()
}

func (c *Controller) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.config.RequestTimeout)
}

func (c *Controller) localSnapshot(state typing.State) models.ProgressSnapshot {
	return models.ProgressSnapshot{
		PlayerID:   c.player.ID,
		PlayerName: c.player.Name,
		TypedText:  state.TypedText,
		WPM:        state.WPM,
		Accuracy:   state.Accuracy,
	}
}

func (c *Controller) view() View {
	v := View{
		Phase:       c.phase,
		Player:      c.player,
		Typing:      c.typing.State(),
		SecondsLeft: c.secondsLeft,
		ResultsLeft: c.resultsLeft,
		Err:         c.err,
	}
	if c.round != nil {
		round := *c.round
		v.Round = &round
		v.Joined = c.joinedRound == round.ID
	}
	if c.stats != nil {
		stats := *c.stats
		v.Stats = &stats
	}
	if c.phase == PhaseResults {
		v.Results = append([]models.ProgressSnapshot(nil), c.results...)
	} else {
		v.Standings = c.standings.Ranked()
	}
	return v
}

func (c *Controller) notify() {
	if c.config.OnChange != nil {
		c.config.OnChange(c.view())
	}
}

func (c *Controller) teardown() {
	c.timer.Stop()
	c.stopResultsTicker()
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	close(c.done)
}
