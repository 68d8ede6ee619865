package outbox

import (
	"encoding/json"
	"time"
)

// Actor is the user whose request produced an event.
type Actor struct {
	UserID int64 `json:"userId"`
}

// ActorFor returns nil for anonymous or system changes (userID <= 0).
func ActorFor(userID int64) *Actor {
	if userID <= 0 {
		return nil
	}
	return &Actor{UserID: userID}
}

// Envelope is the JSON stored in outbox_events.payload. Data holds the typed
// event body; consumers switch on Version before decoding it.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *Actor          `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
