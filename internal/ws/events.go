package ws

import (
	"encoding/json"
	"time"
)

// Event is the structured message sent to WebSocket clients. Audit decisions
// and provisioning transitions for a tenant are streamed to that tenant's
// connections only.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}
