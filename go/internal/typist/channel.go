package typist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/game"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConnected  = errors.New("progress channel not connected")
	ErrNotSubscribed = errors.New("not subscribed to round")
	ErrSendQueueFull = errors.New("progress channel send queue full")
)

type ChannelConfig struct {
	// URL of the gateway websocket endpoint, e.g. ws://localhost:8080/ws
	URL          string
	Token        func() string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	SendBuffer   int
}

func DefaultChannelConfig(wsURL string, token func() string) ChannelConfig {
	return ChannelConfig{
		URL:          wsURL,
		Token:        token,
		ReconnectMin: 500 * time.Millisecond,
		ReconnectMax: 15 * time.Second,
		SendBuffer:   64,
	}
}

// Channel is the client end of the progress broadcast. It keeps one socket
// open, reconnecting with backoff, and re-subscribes after every reconnect.
// Server pushes are handed to deliver from the read goroutine.
type Channel struct {
	config  ChannelConfig
	clock   clockwork.Clock
	dialer  *websocket.Dialer
	deliver func(*events.RoundEvent)

	mu      sync.Mutex
	roundID uuid.UUID
	out     chan []byte
}

var _ game.ProgressChannel = (*Channel)(nil)

func NewChannel(config ChannelConfig, clock clockwork.Clock, deliver func(*events.RoundEvent)) *Channel {
	return &Channel{
		config:  config,
		clock:   clock,
		dialer:  websocket.DefaultDialer,
		deliver: deliver,
	}
}

// Subscribe moves to roundID; uuid.Nil leaves. The choice survives reconnects.
func (c *Channel) Subscribe(roundID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roundID = roundID
	if c.out == nil {
		return nil
	}
	return c.enqueueLocked(subscribeCommand(roundID))
}

// Publish sends a snapshot for the subscribed round. Nothing is buffered
// across reconnects.
func (c *Channel) Publish(roundID uuid.UUID, snapshot models.ProgressSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	cmd := events.ClientCommand{Type: events.CommandProgress, RoundID: roundID.String(), Data: data}

	c.mu.Lock()
	defer c.mu.Unlock()
	if roundID != c.roundID {
		return ErrNotSubscribed
	}
	if c.out == nil {
		return ErrNotConnected
	}
	return c.enqueueLocked(cmd)
}

func (c *Channel) enqueueLocked(cmd events.ClientCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}
	select {
	case c.out <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func subscribeCommand(roundID uuid.UUID) events.ClientCommand {
	cmd := events.ClientCommand{Type: events.CommandSubscribe}
	if roundID != uuid.Nil {
		cmd.RoundID = roundID.String()
	}
	return cmd
}

// Run keeps the socket connected until ctx is done.
func (c *Channel) Run(ctx context.Context) error {
	backoff := c.config.ReconnectMin
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = c.config.ReconnectMin
		}

		log.Warn().
			Err(err).
			Dur("retry_in", backoff).
			Msg("progress channel disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-c.clock.After(backoff):
		}
		backoff = min(backoff*2, c.config.ReconnectMax)
	}
}

func (c *Channel) session(ctx context.Context) (bool, error) {
	target, err := url.Parse(c.config.URL)
	if err != nil {
		return false, fmt.Errorf("invalid gateway url: %w", err)
	}
	query := target.Query()
	query.Set("token", c.config.Token())
	target.RawQuery = query.Encode()

	conn, _, err := c.dialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to dial gateway: %w", err)
	}
	defer conn.Close()

	out := make(chan []byte, c.config.SendBuffer)
	c.mu.Lock()
	c.out = out
	if c.roundID != uuid.Nil {
		_ = c.enqueueLocked(subscribeCommand(c.roundID))
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.out == out {
			c.out = nil
		}
		c.mu.Unlock()
	}()

	log.Info().Str("url", c.config.URL).Msg("progress channel connected")

	done := make(chan struct{})
	defer close(done)
	errCh := make(chan error, 2)

	go func() {
		for {
			select {
			case <-done:
				return
			case data := <-out:
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					errCh <- fmt.Errorf("failed to write: %w", err)
					return
				}
			}
		}
	}()

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errCh <- fmt.Errorf("failed to read: %w", err)
				return
			}
			var event events.RoundEvent
			if err := json.Unmarshal(data, &event); err != nil {
				log.Debug().Err(err).Msg("ignoring malformed push")
				continue
			}
			c.deliver(&event)
		}
	}()

	select {
	case <-ctx.Done():
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return true, ctx.Err()
	case err := <-errCh:
		return true, err
	}
}
