package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/db"
	"github.com/mcdev12/typerace/go/internal/dbconfig"
	"github.com/mcdev12/typerace/go/internal/gateway"
	"github.com/mcdev12/typerace/go/internal/identity"
	"github.com/mcdev12/typerace/go/internal/messaging"
	"github.com/mcdev12/typerace/go/internal/outbox"
	"github.com/mcdev12/typerace/go/internal/player"
	"github.com/mcdev12/typerace/go/internal/round"
	"github.com/mcdev12/typerace/go/internal/sentences"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	localProgressBuffer  = 1024
	outboxStallThreshold = time.Minute
)

type Services struct {
	Issuer   *identity.Issuer
	Identity *identity.Service
	Players  *player.Service
	Rounds   *round.Service
	Gateway  *gateway.Service
	Outbox   *outbox.Listener
	Health   *outbox.HealthChecker

	nc *nats.Conn
}

// Close releases the broker connection, if any.
func (s *Services) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}

func setupServices(ctx context.Context, config *Config, database *sql.DB, dbConfig dbconfig.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()
	queries := db.NewWithDialect(database, dbConfig.Dialect())
	seed := uint64(clock.Now().UnixNano())

	secret, err := config.signingSecret()
	if err != nil {
		return nil, err
	}
	issuer := identity.NewIssuer(secret, config.TokenTTL(), clock)

	// Players
	playerRepo := player.NewRepository(queries)
	playerApp := player.NewApp(playerRepo, player.NewNameGenerator(seed), clock)

	// Rounds
	roundRepo := round.NewRepository(queries, database)
	roundApp := round.NewApp(
		roundRepo,
		playerApp,
		sentences.NewPicker(sentences.Defaults(), seed),
		clock,
		config.RoundDuration(),
	)

	services := &Services{
		Issuer:   issuer,
		Identity: identity.NewService(issuer),
		Players:  player.NewService(playerApp),
		Rounds:   round.NewService(roundApp),
	}

	// Realtime: NATS when configured, in-process otherwise
	var (
		bus       gateway.ProgressBus
		publisher outbox.Publisher
	)
	if config.NatsURL != "" {
		natsConfig := messaging.DefaultConfig()
		natsConfig.URL = config.NatsURL
		nc, err := messaging.Connect(natsConfig)
		if err != nil {
			return nil, err
		}
		services.nc = nc
		bus = gateway.NewNATSProgressBus(nc)
	} else {
		bus = gateway.NewLocalProgressBus(localProgressBuffer)
	}

	services.Gateway = gateway.NewService(gateway.DefaultConfig(), issuer, roundApp, bus)

	if services.nc != nil {
		streamConfig := messaging.DefaultStreamConfig()
		jsPublisher, err := outbox.NewJetStreamPublisher(ctx, services.nc, streamConfig)
		if err != nil {
			services.Close()
			return nil, fmt.Errorf("failed to create outbox publisher: %w", err)
		}
		consumer, err := gateway.NewEventConsumer(ctx, services.Gateway.ConnectionManager(), services.nc, streamConfig)
		if err != nil {
			services.Close()
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		services.Gateway.SetEventConsumer(consumer)
		publisher = jsPublisher
		log.Info().Str("nats_url", config.NatsURL).Msg("realtime over NATS")
	} else {
		publisher = gateway.NewLocalLifecyclePublisher(services.Gateway.ConnectionManager())
		log.Info().Msg("realtime in-process")
	}

	// Outbox relay; LISTEN/NOTIFY only exists on Postgres
	listenerConfig := outbox.DefaultListenerConfig()
	listenerConfig.FallbackInterval = config.FallbackInterval()
	listenerConfig.BatchSize = config.Outbox.BatchSize
	if dbConfig.Driver == dbconfig.DriverPostgres {
		listenerConfig.DatabaseURL = dbConfig.DSN()
	}
	listener, err := outbox.NewListener(queries, publisher, clock, listenerConfig)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to create outbox listener: %w", err)
	}
	services.Outbox = listener

	var broker outbox.BrokerConn
	if services.nc != nil {
		broker = services.nc
	}
	services.Health = outbox.NewHealthChecker(listener, database, queries, broker, clock, outboxStallThreshold)

	return services, nil
}
