package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/messaging"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// ErrBusFull is returned by the local bus when its queue is saturated.
var ErrBusFull = errors.New("progress bus full")

// ProgressSink receives every progress event seen on the bus
type ProgressSink func(roundID uuid.UUID, event *events.RoundEvent)

// ProgressBus fans progress events out to every gateway instance, including
// the one that published them.
type ProgressBus interface {
	Publish(ctx context.Context, event *events.RoundEvent) error
	Run(ctx context.Context, sink ProgressSink) error
}

// NATSProgressBus uses core NATS subjects; delivery is at most once.
type NATSProgressBus struct {
	nc *nats.Conn
}

func NewNATSProgressBus(nc *nats.Conn) *NATSProgressBus {
	return &NATSProgressBus{nc: nc}
}

func (b *NATSProgressBus) Publish(ctx context.Context, event *events.RoundEvent) error {
	roundID, err := uuid.Parse(event.RoundID)
	if err != nil {
		return fmt.Errorf("invalid round id: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	if err := b.nc.Publish(messaging.ProgressSubject(roundID), data); err != nil {
		return fmt.Errorf("publish progress: %w", err)
	}
	return nil
}

func (b *NATSProgressBus) Run(ctx context.Context, sink ProgressSink) error {
	sub, err := b.nc.Subscribe(messaging.ProgressSubjectPrefix+".*", func(msg *nats.Msg) {
		var event events.RoundEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("invalid progress message")
			return
		}
		roundID, err := uuid.Parse(event.RoundID)
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("progress message without round")
			return
		}
		sink(roundID, &event)
	})
	if err != nil {
		return fmt.Errorf("subscribe to progress: %w", err)
	}

	log.Info().Str("subject", sub.Subject).Msg("progress bus subscribed")
	<-ctx.Done()
	return sub.Unsubscribe()
}

// LocalProgressBus delivers within a single process.
type LocalProgressBus struct {
	ch chan *events.RoundEvent
}

func NewLocalProgressBus(size int) *LocalProgressBus {
	return &LocalProgressBus{ch: make(chan *events.RoundEvent, size)}
}

func (b *LocalProgressBus) Publish(ctx context.Context, event *events.RoundEvent) error {
	select {
	case b.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBusFull
	}
}

func (b *LocalProgressBus) Run(ctx context.Context, sink ProgressSink) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-b.ch:
			roundID, err := uuid.Parse(event.RoundID)
			if err != nil {
				continue
			}
			sink(roundID, event)
		}
	}
}
