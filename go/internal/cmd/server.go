package main

import (
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/mcdev12/typerace/go/internal/api"
	"github.com/mcdev12/typerace/go/internal/identity"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(config *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerServices(mux, services)
	services.Gateway.RegisterRoutes(mux)
	setupHealthCheck(mux)
	mux.Handle("/health/outbox", services.Health)

	handler := c.Handler(mux)

	// No write timeout: websocket connections outlive any single request
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	interceptors := connect.WithInterceptors(identity.NewAuthInterceptor(services.Issuer))

	// Register identity service
	identityPath, identityHandler := api.NewIdentityServiceHandler(services.Identity, interceptors)
	mux.Handle(identityPath, identityHandler)

	// Register player service
	playerPath, playerHandler := api.NewPlayerServiceHandler(services.Players, interceptors)
	mux.Handle(playerPath, playerHandler)

	// Register round service
	roundPath, roundHandler := api.NewRoundServiceHandler(services.Rounds, interceptors)
	mux.Handle(roundPath, roundHandler)
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
