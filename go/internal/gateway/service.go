package gateway

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/rs/zerolog/log"
)

// Service is the realtime gateway: websocket connections, the progress bus
// and, when a broker is configured, the lifecycle consumer.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	bus               ProgressBus
	eventConsumer     *EventConsumer
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new gateway service
func NewService(config Config, verifier TokenVerifier, authorizer Authorizer, bus ProgressBus) *Service {
	cm := NewConnectionManager(config.ConnectionConfig, authorizer, bus)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, verifier),
		bus:               bus,
	}
}

// ConnectionManager exposes the manager for lifecycle publishers and consumers
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.connectionManager
}

// SetEventConsumer attaches a JetStream lifecycle consumer started with the service
func (s *Service) SetEventConsumer(ec *EventConsumer) {
	s.eventConsumer = ec
}

// Start runs the gateway until ctx is done
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting gateway service")

	go s.connectionManager.Start(ctx)

	go func() {
		sink := func(roundID uuid.UUID, event *events.RoundEvent) {
			s.connectionManager.BroadcastToRound(roundID, event)
		}
		if err := s.bus.Run(ctx, sink); err != nil {
			log.Error().Err(err).Msg("progress bus failed")
		}
	}()

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
