package gateway

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/rs/zerolog/log"
)

// handleClientMessage processes messages received from the client
func (c *Connection) handleClientMessage(message []byte) {
	var msg events.ClientCommand
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("invalid client message")
		return
	}

	switch msg.Type {
	case events.CommandSubscribe:
		c.handleSubscribe(msg)
	case events.CommandProgress:
		c.handleProgress(msg)
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("type", msg.Type).
			Msg("ignoring unknown client message")
	}
}

func (c *Connection) handleSubscribe(msg events.ClientCommand) {
	roundID := uuid.Nil
	if msg.RoundID != "" {
		parsed, err := uuid.Parse(msg.RoundID)
		if err != nil {
			log.Warn().Err(err).Str("connection_id", c.ID).Msg("invalid round id in subscribe")
			return
		}
		roundID = parsed
	}
	c.Manager.subscribe(c, roundID)
}

// handleProgress relays a snapshot for the connection's current round once the
// sender is known to own the player and to have joined the round.
func (c *Connection) handleProgress(msg events.ClientCommand) {
	roundID, err := uuid.Parse(msg.RoundID)
	if err != nil || roundID == uuid.Nil || roundID != c.Manager.currentRound(c) {
		log.Debug().
			Str("connection_id", c.ID).
			Str("round_id", msg.RoundID).
			Msg("dropping progress for a round the connection is not subscribed to")
		return
	}

	var snapshot models.ProgressSnapshot
	if err := json.Unmarshal(msg.Data, &snapshot); err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("invalid progress snapshot")
		return
	}

	if !c.authorize(roundID, snapshot.PlayerID) {
		return
	}
	snapshot.PlayerName = c.playerName

	event, err := events.NewRoundEvent(roundID, events.EventTypeProgress, c.Manager.clock.Now().UTC(), snapshot)
	if err != nil {
		log.Error().Err(err).Msg("failed to build progress event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.AuthorizeTimeout)
	defer cancel()
	if err := c.Manager.bus.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("round_id", roundID.String()).Msg("failed to publish progress")
	}
}

func (c *Connection) authorize(roundID, playerID uuid.UUID) bool {
	if c.authorizedRound == roundID && c.authorizedPlayer == playerID {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.AuthorizeTimeout)
	defer cancel()

	player, err := c.Manager.authorizer.AuthorizePublisher(ctx, roundID, playerID, c.AuthID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Str("round_id", roundID.String()).
			Str("player_id", playerID.String()).
			Msg("progress publisher rejected")
		return false
	}

	c.authorizedRound = roundID
	c.authorizedPlayer = playerID
	c.playerName = player.Name
	return true
}
