package events

import "encoding/json"

// Client-to-server websocket command types
const (
	CommandSubscribe = "subscribe"
	CommandProgress  = "progress"
)

// ClientCommand is a command sent by a client over its socket.
// An empty RoundID on subscribe leaves the current round.
type ClientCommand struct {
	Type    string          `json:"type"`
	RoundID string          `json:"round_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
