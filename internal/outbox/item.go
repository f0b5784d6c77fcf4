package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EntityTask        = "task"
	EntityEvent       = "event"
	EntityNote        = "note"
	EntityPreferences = "preferences"

	OperationPut    = "put"
	OperationDelete = "delete"
)

// Item is a write that could not reach the primary store and waits for replay.
type Item struct {
	ID        string          `json:"id"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	EntityID  string          `json:"entity_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	key []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
