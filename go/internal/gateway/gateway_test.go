package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVerifier map[string]string

func (v staticVerifier) Verify(token string) (string, error) {
	authID, ok := v[token]
	if !ok {
		return "", errors.New("unknown token")
	}
	return authID, nil
}

type grant struct {
	roundID  uuid.UUID
	playerID uuid.UUID
	authID   string
}

type fakeAuthorizer struct {
	grants map[grant]string
}

func (a *fakeAuthorizer) AuthorizePublisher(_ context.Context, roundID, playerID uuid.UUID, authID string) (*models.Player, error) {
	name, ok := a.grants[grant{roundID, playerID, authID}]
	if !ok {
		return nil, errors.New("forbidden")
	}
	return &models.Player{ID: playerID, AuthID: authID, Name: name}, nil
}

var harnessNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	service *Service
	server  *httptest.Server
	auth    *fakeAuthorizer
	clock   *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	auth := &fakeAuthorizer{grants: map[grant]string{}}
	verifier := staticVerifier{"token-a": "auth-a", "token-b": "auth-b"}
	clock := clockwork.NewFakeClockAt(harnessNow)
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Clock = clock
	svc := NewService(cfg, verifier, auth, NewLocalProgressBus(64))

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Start(ctx)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &harness{service: svc, server: server, auth: auth, clock: clock}
}

func (h *harness) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return h.service.GetStats().TotalConnections > 0
	}, time.Second, 10*time.Millisecond)
	return conn
}

func (h *harness) subscribe(t *testing.T, conn *websocket.Conn, roundID uuid.UUID, wantInRound int) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(events.ClientCommand{Type: events.CommandSubscribe, RoundID: roundID.String()}))
	require.Eventually(t, func() bool {
		return h.service.GetStats().RoundConnections[roundID.String()] == wantInRound
	}, time.Second, 10*time.Millisecond)
}

func sendProgress(t *testing.T, conn *websocket.Conn, roundID uuid.UUID, snapshot models.ProgressSnapshot) {
	t.Helper()
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(events.ClientCommand{Type: events.CommandProgress, RoundID: roundID.String(), Data: data}))
}

func readEvent(t *testing.T, conn *websocket.Conn) events.RoundEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event events.RoundEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHandleConnection_RequiresToken(t *testing.T) {
	h := newHarness(t)
	base := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=bogus", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{"Authorization": []string{"Bearer token-a"}}
	conn, _, err := websocket.DefaultDialer.Dial(base, header)
	require.NoError(t, err)
	conn.Close()
}

func TestProgress_ReachesRoundSubscribers(t *testing.T) {
	h := newHarness(t)
	roundID := uuid.New()
	playerA := uuid.New()
	h.auth.grants[grant{roundID, playerA, "auth-a"}] = "Brave Otter"

	a := h.dial(t, "token-a")
	b := h.dial(t, "token-b")
	h.subscribe(t, a, roundID, 1)
	h.subscribe(t, b, roundID, 2)

	sendProgress(t, a, roundID, models.ProgressSnapshot{
		PlayerID:   playerA,
		PlayerName: "Someone Else",
		TypedText:  "the qu",
		WPM:        42,
		Accuracy:   1,
	})

	for _, conn := range []*websocket.Conn{a, b} {
		event := readEvent(t, conn)
		assert.Equal(t, events.EventTypeProgress, event.Type)
		assert.Equal(t, roundID.String(), event.RoundID)
		assert.True(t, event.Timestamp.Equal(harnessNow), "stamped with %s", event.Timestamp)

		payload, err := events.ParseEventPayload(&event)
		require.NoError(t, err)
		snapshot, ok := payload.(events.ProgressPayload)
		require.True(t, ok)
		assert.Equal(t, playerA, snapshot.PlayerID)
		assert.Equal(t, "Brave Otter", snapshot.PlayerName)
		assert.Equal(t, "the qu", snapshot.TypedText)
		assert.Equal(t, 42, snapshot.WPM)
	}
}

func TestProgress_DropsUnsubscribedAndUnauthorized(t *testing.T) {
	h := newHarness(t)
	roundID := uuid.New()
	otherRound := uuid.New()
	playerA := uuid.New()
	h.auth.grants[grant{roundID, playerA, "auth-a"}] = "Brave Otter"
	h.auth.grants[grant{otherRound, playerA, "auth-a"}] = "Brave Otter"

	a := h.dial(t, "token-a")
	b := h.dial(t, "token-b")
	h.subscribe(t, a, roundID, 1)
	h.subscribe(t, b, roundID, 2)

	// not subscribed to otherRound
	sendProgress(t, a, otherRound, models.ProgressSnapshot{PlayerID: playerA, TypedText: "x"})
	// b does not own playerA
	sendProgress(t, b, roundID, models.ProgressSnapshot{PlayerID: playerA, TypedText: "spoofed"})
	sendProgress(t, a, roundID, models.ProgressSnapshot{PlayerID: playerA, TypedText: "real"})

	event := readEvent(t, b)
	payload, err := events.ParseEventPayload(&event)
	require.NoError(t, err)
	snapshot, ok := payload.(events.ProgressPayload)
	require.True(t, ok)
	assert.Equal(t, roundID.String(), event.RoundID)
	assert.Equal(t, "real", snapshot.TypedText)
}

func TestSubscribe_MovesBetweenRounds(t *testing.T) {
	h := newHarness(t)
	first := uuid.New()
	second := uuid.New()

	a := h.dial(t, "token-a")
	h.subscribe(t, a, first, 1)
	h.subscribe(t, a, second, 1)

	stats := h.service.GetStats()
	assert.Equal(t, 1, stats.ActiveRounds)
	assert.Zero(t, stats.RoundConnections[first.String()])

	require.NoError(t, a.WriteJSON(events.ClientCommand{Type: events.CommandSubscribe}))
	require.Eventually(t, func() bool {
		return h.service.GetStats().ActiveRounds == 0
	}, time.Second, 10*time.Millisecond)
}

func TestLocalLifecyclePublisher_BroadcastsToEveryone(t *testing.T) {
	h := newHarness(t)
	a := h.dial(t, "token-a")
	b := h.dial(t, "token-b")
	h.subscribe(t, a, uuid.New(), 1)
	require.Eventually(t, func() bool {
		return h.service.GetStats().TotalConnections == 2
	}, time.Second, 10*time.Millisecond)

	roundID := uuid.New()
	event, err := events.NewRoundEvent(roundID, events.EventTypeRoundEnded, time.Now(), events.RoundEndedPayload{
		RoundID: roundID.String(),
		EndedAt: time.Now(),
	})
	require.NoError(t, err)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	publisher := NewLocalLifecyclePublisher(h.service.ConnectionManager())
	require.NoError(t, publisher.Publish(context.Background(), outbox.Event{
		ID:        uuid.MustParse(event.ID),
		RoundID:   roundID,
		EventType: string(event.Type),
		Payload:   payload,
	}))

	for _, conn := range []*websocket.Conn{a, b} {
		got := readEvent(t, conn)
		assert.Equal(t, events.EventTypeRoundEnded, got.Type)
		assert.Equal(t, event.ID, got.ID)
	}
}

func TestLocalLifecyclePublisher_RejectsProgress(t *testing.T) {
	h := newHarness(t)
	event, err := events.NewRoundEvent(uuid.New(), events.EventTypeProgress, time.Now(), models.ProgressSnapshot{})
	require.NoError(t, err)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	publisher := NewLocalLifecyclePublisher(h.service.ConnectionManager())
	assert.Error(t, publisher.Publish(context.Background(), outbox.Event{Payload: payload}))
	assert.Error(t, publisher.Publish(context.Background(), outbox.Event{Payload: []byte("{")}))
}

func TestLocalProgressBus_Full(t *testing.T) {
	bus := NewLocalProgressBus(1)
	event := &events.RoundEvent{RoundID: uuid.NewString(), Type: events.EventTypeProgress}
	require.NoError(t, bus.Publish(context.Background(), event))
	assert.ErrorIs(t, bus.Publish(context.Background(), event), ErrBusFull)
}
