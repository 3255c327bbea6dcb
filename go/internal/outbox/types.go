package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/db"
	"github.com/mcdev12/typerace/go/internal/sqlutil"
)

// Event is one relayed outbox row. Payload is the serialized websocket envelope.
type Event struct {
	ID        uuid.UUID
	RoundID   uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// Publisher delivers an outbox event to its subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

func eventFromRow(row db.RoundOutbox) Event {
	return Event{
		ID:        row.ID,
		RoundID:   row.RoundID,
		EventType: row.EventType,
		Payload:   []byte(row.Payload),
		CreatedAt: sqlutil.FromMillis(row.CreatedAtMs),
	}
}
