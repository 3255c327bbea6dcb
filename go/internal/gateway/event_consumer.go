package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/messaging"
	"github.com/mcdev12/typerace/go/internal/outbox"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// EventConsumer reads round lifecycle events from JetStream and pushes them to
// every connection on this instance. Each instance needs every event, so it
// uses its own ordered, ephemeral consumer starting at new messages.
type EventConsumer struct {
	connectionManager *ConnectionManager
	js                jetstream.JetStream
	config            messaging.StreamConfig
}

func NewEventConsumer(ctx context.Context, cm *ConnectionManager, nc *nats.Conn, cfg messaging.StreamConfig) (*EventConsumer, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	if err := messaging.EnsureStream(ctx, js, cfg); err != nil {
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return &EventConsumer{
		connectionManager: cm,
		js:                js,
		config:            cfg,
	}, nil
}

// Start begins consuming events from JetStream
func (ec *EventConsumer) Start(ctx context.Context) error {
	consumer, err := ec.js.OrderedConsumer(ctx, ec.config.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{ec.config.Subjects()},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create ordered consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := ec.processMessage(msg.Data()); err != nil {
			log.Error().
				Err(err).
				Str("subject", msg.Subject()).
				Msg("failed to process message")
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	log.Info().
		Str("stream", ec.config.StreamName).
		Str("filter", ec.config.Subjects()).
		Msg("lifecycle consumer started")

	<-ctx.Done()
	log.Info().Msg("lifecycle consumer shutting down")
	return nil
}

func (ec *EventConsumer) processMessage(data []byte) error {
	return broadcastLifecycle(ec.connectionManager, data)
}

// LocalLifecyclePublisher hands outbox events straight to this process's
// connections when no message broker is configured.
type LocalLifecyclePublisher struct {
	connectionManager *ConnectionManager
}

var _ outbox.Publisher = (*LocalLifecyclePublisher)(nil)

func NewLocalLifecyclePublisher(cm *ConnectionManager) *LocalLifecyclePublisher {
	return &LocalLifecyclePublisher{connectionManager: cm}
}

func (p *LocalLifecyclePublisher) Publish(_ context.Context, event outbox.Event) error {
	return broadcastLifecycle(p.connectionManager, event.Payload)
}

func broadcastLifecycle(cm *ConnectionManager, data []byte) error {
	var event events.RoundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal round event: %w", err)
	}

	switch event.Type {
	case events.EventTypeRoundStarted, events.EventTypeRoundEnded:
	default:
		return fmt.Errorf("unexpected lifecycle event type: %s", event.Type)
	}

	cm.BroadcastAll(&event)

	log.Debug().
		Str("event_id", event.ID).
		Str("round_id", event.RoundID).
		Str("event_type", string(event.Type)).
		Msg("lifecycle event broadcasted to WebSocket clients")
	return nil
}
