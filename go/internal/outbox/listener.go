package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/mcdev12/typerace/go/internal/db"
	"github.com/mcdev12/typerace/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY, empty for polling only
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to poll for missed events
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int32 // Max events to fetch per batch
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		DatabaseURL:      "",
		NotifyChannel:    "round_outbox_events",
		FallbackInterval: 2 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Listener relays outbox rows to a Publisher. On Postgres it reacts to
// pg_notify from the outbox trigger; the fallback poll catches anything the
// notifications missed and is the only path on SQLite.
type Listener struct {
	queries   *db.Queries
	listener  *pq.Listener
	publisher Publisher
	clock     clockwork.Clock
	cfg       ListenerConfig

	mu          sync.Mutex
	running     bool
	processed   uint64
	lastEventAt time.Time
}

// Stats reports how many events were relayed and when the last one was.
func (l *Listener) Stats() (processed uint64, lastEventAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processed, l.lastEventAt
}

// Running reports whether Start is looping.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Listener) setRunning(running bool) {
	l.mu.Lock()
	l.running = running
	l.mu.Unlock()
}

func NewListener(queries *db.Queries, publisher Publisher, clock clockwork.Clock, cfg ListenerConfig) (*Listener, error) {
	l := &Listener{
		queries:   queries,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
	}

	if cfg.DatabaseURL == "" {
		log.Info().Dur("interval", cfg.FallbackInterval).Msg("outbox listener polling only")
		return l, nil
	}

	l.listener = pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.listener.Listen(cfg.NotifyChannel); err != nil {
		l.listener.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	return l, nil
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("outbox listener started")

	l.setRunning(true)
	defer l.setRunning(false)

	fallbackTicker := l.clock.NewTicker(l.cfg.FallbackInterval)
	defer fallbackTicker.Stop()

	// nil channels block forever when running without LISTEN/NOTIFY
	var (
		notify <-chan *pq.Notification
		ping   <-chan time.Time
	)
	if l.listener != nil {
		notify = l.listener.Notify
		pingTicker := l.clock.NewTicker(l.cfg.PingInterval)
		defer pingTicker.Stop()
		ping = pingTicker.Chan()
	}

	// catch up on anything written while we were down
	if err := l.processUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to process unsent events")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox listener shutting down")
			return l.Stop()
		case note := <-notify:
			if note == nil {
				// connection was lost and re-established; poll for gaps
				if err := l.processUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("failed to process unsent events")
				}
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.Chan():
			if err := l.processUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-ping:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

// handleNotification fetches the notified outbox row and publishes it.
// Extra is the row id sent by the trigger.
func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}

	row, err := l.queries.FetchOutboxByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	if row.SentAtMs.Valid {
		return nil
	}

	if err := l.publishWithRetry(ctx, eventFromRow(row)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// processUnsent publishes every unsent row, oldest first.
func (l *Listener) processUnsent(ctx context.Context) error {
	unsent, err := l.queries.FetchUnsentOutbox(ctx, l.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}

	for _, row := range unsent {
		if err := l.publishWithRetry(ctx, eventFromRow(row)); err != nil {
			log.Error().Err(err).Str("event_id", row.ID.String()).Msg("failed to publish event")
			continue
		}
	}
	return nil
}

// publishWithRetry publishes with a linearly growing delay and marks the row
// sent once the publisher accepts it.
func (l *Listener) publishWithRetry(ctx context.Context, event Event) error {
	var lastErr error

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := l.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.clock.After(delay):
			}
		}

		if err := l.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		err := l.queries.MarkOutboxSent(ctx, db.MarkOutboxSentParams{
			ID:       event.ID,
			SentAtMs: sqlutil.ToMillis(l.clock.Now()),
		})
		if err != nil {
			return fmt.Errorf("failed to mark outbox event as sent: %w", err)
		}

		l.mu.Lock()
		l.processed++
		l.lastEventAt = l.clock.Now()
		l.mu.Unlock()

		log.Debug().
			Str("event_id", event.ID.String()).
			Str("event_type", event.EventType).
			Int("attempt", attempt+1).
			Msg("published and marked event as sent")
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", l.cfg.MaxRetries+1, lastErr)
}
